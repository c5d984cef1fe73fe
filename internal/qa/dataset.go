package qa

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/data-qa/internal/model"
)

// ArchivalSource provides the archiver's link-health facts for a
// resource. A nil record means the resource was never archived.
type ArchivalSource interface {
	GetArchival(ctx context.Context, resourceID string) (*model.Archival, error)
}

// Runner scores whole datasets, persisting each resource's result.
type Runner struct {
	Scorer    *Scorer
	Archivals ArchivalSource
	Store     RecordStore
	// Concurrency bounds how many resources are scored in parallel.
	// Zero means sequential.
	Concurrency int
}

// ScoreResource scores one resource end to end: loads its archival
// facts, runs the scorer, and persists the result.
func (r *Runner) ScoreResource(ctx context.Context, res *model.Resource) (*model.ScoreResult, error) {
	archival, err := r.Archivals.GetArchival(ctx, res.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "qa: load archival for resource %s", res.ID)
	}

	result, err := r.Scorer.Score(ctx, res, archival)
	if err != nil {
		return nil, err
	}

	if _, err := r.Store.SaveQA(ctx, res.ID, result); err != nil {
		return nil, eris.Wrapf(err, "qa: save result for resource %s", res.ID)
	}
	return result, nil
}

// ScoreDataset scores every resource of a dataset. A failure on one
// resource is logged and counted, not fatal to the rest of the batch.
func (r *Runner) ScoreDataset(ctx context.Context, ds *model.Dataset) ([]*model.ScoreResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	results := make([]*model.ScoreResult, 0, len(ds.Resources))
	failed := 0

	for i := range ds.Resources {
		res := ds.Resources[i]
		res.LicenseOpen = ds.LicenseOpen
		g.Go(func() error {
			result, err := r.ScoreResource(ctx, &res)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				zap.L().Error("scoring resource failed",
					zap.String("dataset_id", ds.ID),
					zap.String("resource_id", res.ID),
					zap.Error(err),
				)
				return nil
			}
			results = append(results, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, eris.Wrapf(err, "qa: score dataset %s", ds.ID)
	}

	zap.L().Info("dataset scored",
		zap.String("dataset_id", ds.ID),
		zap.Int("scored", len(results)),
		zap.Int("failed", failed),
	)
	return results, nil
}
