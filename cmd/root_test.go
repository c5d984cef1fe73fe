package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/store"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "import", "score", "sniff", "status", "serve"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}

func TestMigrateImportScore(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	dbPath := filepath.Join(dir, "qa.db")
	t.Setenv("DATAQA_STORE_DRIVER", "sqlite")
	t.Setenv("DATAQA_STORE_DATABASE_URL", dbPath)

	cachePath := filepath.Join(dir, "data.csv")
	content := "a,b,c\n1,2,3\n4,5,6\n7,8,9\n10,11,12\n13,14,15\n16,17,18\n" +
		"19,20,21\n22,23,24\n25,26,27\n28,29,30\n31,32,33\n"
	require.NoError(t, os.WriteFile(cachePath, []byte(content), 0o644))

	snap := snapshot{
		Datasets: []model.Dataset{{
			ID:          "d1",
			Name:        "road-traffic-counts",
			LicenseOpen: true,
			Resources: []model.Resource{
				{ID: "r1", DatasetID: "d1", URL: "http://example.gov/data.csv"},
			},
		}},
		Archivals: []model.Archival{
			{ResourceID: "r1", CacheFilepath: cachePath},
		},
	}
	snapData, err := json.Marshal(snap)
	require.NoError(t, err)
	snapPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(snapPath, snapData, 0o644))

	require.NoError(t, runCommand(t, "migrate"))
	require.NoError(t, runCommand(t, "import", "--snapshot", snapPath))
	require.NoError(t, runCommand(t, "score", "--resource", "r1"))

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()

	record, err := st.GetQA(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 3, record.OpennessScore)
	assert.Equal(t, "CSV", record.Format)
}
