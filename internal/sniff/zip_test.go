package sniff

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
)

func testScores(t *testing.T) *registry.Scores {
	t.Helper()
	s, err := registry.LoadScores("")
	require.NoError(t, err)
	return s
}

func writeZip(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestInspectZip_Shapefile(t *testing.T) {
	path := writeZip(t, "boundaries.shp", "boundaries.dbf", "boundaries.shx", "readme.txt")
	result := InspectZip(path, testFormats(t), testScores(t))
	require.NotNil(t, result)
	assert.Equal(t, "SHP", result.Format)
	// the Shapefile special case wins before the extension vote, so
	// no container annotation is attached
	assert.Empty(t, result.Container)
}

func TestInspectZip_GTFS(t *testing.T) {
	path := writeZip(t,
		"agency.txt", "stops.txt", "routes.txt", "trips.txt",
		"stop_times.txt", "calendar.txt", "fare_rules.txt",
	)
	result := InspectZip(path, testFormats(t), testScores(t))
	require.NotNil(t, result)
	assert.Equal(t, "GTFS", result.Format)
}

func TestInspectZip_ExtensionVote(t *testing.T) {
	// CSV scores higher than TXT, so the CSVs win even though TXT
	// files outnumber them.
	path := writeZip(t, "a.csv", "b.csv", "notes.txt", "more.txt", "also.txt")
	result := InspectZip(path, testFormats(t), testScores(t))
	require.NotNil(t, result)
	assert.Equal(t, "CSV", result.Format)
	assert.Equal(t, model.ContainerZIP, result.Container)
}

func TestInspectZip_VoteTieBreaksAlphabetically(t *testing.T) {
	// CSV and PSV share the same score and count; the tie breaks to
	// the alphabetically first extension.
	path := writeZip(t, "a.psv", "b.csv")
	result := InspectZip(path, testFormats(t), testScores(t))
	require.NotNil(t, result)
	assert.Equal(t, "CSV", result.Format)
}

func TestInspectZip_NoKnownExtensions(t *testing.T) {
	path := writeZip(t, "data.xyz", "other.qqq")
	result := InspectZip(path, testFormats(t), testScores(t))
	require.NotNil(t, result)
	assert.Equal(t, "ZIP", result.Format)
	assert.Empty(t, result.Container)
}

func TestInspectZip_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))
	assert.Nil(t, InspectZip(path, testFormats(t), testScores(t)))
}
