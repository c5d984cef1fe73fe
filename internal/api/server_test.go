package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/fetcher"
	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/qa"
	"github.com/sells-group/data-qa/internal/registry"
	"github.com/sells-group/data-qa/internal/sniff"
	"github.com/sells-group/data-qa/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "qa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	formats, err := registry.LoadFormats("")
	require.NoError(t, err)
	scores, err := registry.LoadScores("")
	require.NoError(t, err)

	scorer := &qa.Scorer{
		Formats: formats,
		Scores:  scores,
		Sniffer: sniff.NewSniffer(formats, scores, sniff.ClassifierChain{}),
		Fetcher: fetcher.NewClient(fetcher.HTTPOptions{}),
		Store:   s,
	}
	runner := &qa.Runner{Scorer: scorer, Archivals: s, Store: s}
	return &Server{Store: s, Runner: runner}, s
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertDataset(ctx, &model.Dataset{
		ID: "d1", Name: "transport-stats", LicenseOpen: true,
	}))

	cache := filepath.Join(t.TempDir(), "data.csv")
	content := "a,b,c\n1,2,3\n4,5,6\n7,8,9\n10,11,12\n13,14,15\n16,17,18\n" +
		"19,20,21\n22,23,24\n25,26,27\n28,29,30\n31,32,33\n"
	require.NoError(t, os.WriteFile(cache, []byte(content), 0o644))

	require.NoError(t, s.UpsertResource(ctx, &model.Resource{
		ID: "r1", DatasetID: "d1", URL: "http://example.gov/data.csv",
	}))
	require.NoError(t, s.UpsertArchival(ctx, &model.Archival{
		ResourceID: "r1", CacheFilepath: cache,
	}))
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(nil), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_GetQA_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(nil), http.MethodGet, "/qa/resource/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ScoreThenGet(t *testing.T) {
	srv, s := newTestServer(t)
	seed(t, s)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/qa/resource/r1/score")
	require.Equal(t, http.StatusOK, rec.Code)

	var scored qaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	assert.Equal(t, 3, scored.OpennessScore)
	assert.Equal(t, "CSV", scored.Format)
	assert.Equal(t, model.ScoreDescriptions[3], scored.ScoreDescription)

	rec = doRequest(t, router, http.MethodGet, "/qa/resource/r1")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched qaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, 3, fetched.OpennessScore)
}

func TestServer_Score_UnknownResource(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(nil), http.MethodPost, "/qa/resource/nope/score")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListQA(t *testing.T) {
	srv, s := newTestServer(t)
	seed(t, s)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/qa/resource/r1/score")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/qa?score=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []qaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ResourceID)

	rec = doRequest(t, router, http.MethodGet, "/qa?score=9")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
