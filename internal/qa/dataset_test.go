package qa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/model"
)

type fakeArchivals struct {
	byResource map[string]*model.Archival
}

func (f *fakeArchivals) GetArchival(_ context.Context, resourceID string) (*model.Archival, error) {
	return f.byResource[resourceID], nil
}

func TestRunner_ScoreResource(t *testing.T) {
	scorer, store := newTestScorer(t)
	cache := writeCache(t, "data.csv", csvSample)
	runner := &Runner{
		Scorer: scorer,
		Archivals: &fakeArchivals{byResource: map[string]*model.Archival{
			"r1": {ResourceID: "r1", CacheFilepath: cache, Updated: datePtr(2026, time.August, 20)},
		}},
		Store: store,
	}

	res := &model.Resource{ID: "r1", URL: "http://example.gov/data.csv", LicenseOpen: true}
	result, err := runner.ScoreResource(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 3, result.OpennessScore)

	saved, err := store.GetQA(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 3, saved.OpennessScore)
	assert.Equal(t, "CSV", saved.Format)
}

func TestRunner_ScoreDataset(t *testing.T) {
	scorer, store := newTestScorer(t)
	cache := writeCache(t, "data.csv", csvSample)
	runner := &Runner{
		Scorer: scorer,
		Archivals: &fakeArchivals{byResource: map[string]*model.Archival{
			"r1": {ResourceID: "r1", CacheFilepath: cache},
			"r2": {
				ResourceID:   "r2",
				IsBroken:     boolPtr(true),
				Status:       model.ArchivalStatusDownloadFailure,
				Reason:       "Server returned 404 Not Found",
				Updated:      datePtr(2026, time.August, 20),
				FailureCount: 2,
				FirstFailure: datePtr(2026, time.July, 20),
			},
		}},
		Store:       store,
		Concurrency: 4,
	}

	ds := &model.Dataset{
		ID:          "d1",
		Name:        "transport-stats",
		LicenseOpen: true,
		Resources: []model.Resource{
			{ID: "r1", DatasetID: "d1", URL: "http://example.gov/data.csv"},
			{ID: "r2", DatasetID: "d1", URL: "http://example.gov/gone.csv"},
			{ID: "r3", DatasetID: "d1", URL: "http://example.gov/report.pdf"},
		},
	}

	results, err := runner.ScoreDataset(context.Background(), ds)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	scores := map[string]int{}
	for _, resourceID := range []string{"r1", "r2", "r3"} {
		saved, err := store.GetQA(context.Background(), resourceID)
		require.NoError(t, err)
		require.NotNil(t, saved, resourceID)
		scores[resourceID] = saved.OpennessScore
	}
	assert.Equal(t, 3, scores["r1"])
	assert.Equal(t, 0, scores["r2"])
	// r3 has no archival, so the URL extension decides.
	assert.Equal(t, 1, scores["r3"])
}

func TestRunner_DatasetLicenseAppliesToResources(t *testing.T) {
	scorer, store := newTestScorer(t)
	cache := writeCache(t, "data.csv", csvSample)
	runner := &Runner{
		Scorer: scorer,
		Archivals: &fakeArchivals{byResource: map[string]*model.Archival{
			"r1": {ResourceID: "r1", CacheFilepath: cache},
		}},
		Store: store,
	}

	ds := &model.Dataset{
		ID:          "d1",
		LicenseOpen: false,
		Resources: []model.Resource{
			{ID: "r1", DatasetID: "d1", URL: "http://example.gov/data.csv"},
		},
	}

	_, err := runner.ScoreDataset(context.Background(), ds)
	require.NoError(t, err)

	saved, err := store.GetQA(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 0, saved.OpennessScore)
	assert.Equal(t, "License not open", saved.OpennessScoreReason)
}
