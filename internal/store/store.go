package store

import (
	"context"

	"github.com/sells-group/data-qa/internal/model"
)

// QAFilter specifies criteria for listing QA records.
type QAFilter struct {
	// Score filters on an exact openness score; nil means any.
	Score  *int   `json:"score,omitempty"`
	Format string `json:"format,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store is the persistence interface for catalog snapshots, archival
// facts, and QA results.
type Store interface {
	// Catalog snapshot
	UpsertDataset(ctx context.Context, ds *model.Dataset) error
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	UpsertResource(ctx context.Context, res *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)

	// Archiver facts
	UpsertArchival(ctx context.Context, a *model.Archival) error
	GetArchival(ctx context.Context, resourceID string) (*model.Archival, error)

	// QA results. SaveQA upserts: one record per resource,
	// superseded on every re-score.
	SaveQA(ctx context.Context, resourceID string, result *model.ScoreResult) (*model.QARecord, error)
	GetQA(ctx context.Context, resourceID string) (*model.QARecord, error)
	ListQA(ctx context.Context, filter QAFilter) ([]model.QARecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
