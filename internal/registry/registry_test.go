package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFormats_Defaults(t *testing.T) {
	f, err := LoadFormats("")
	require.NoError(t, err)

	tests := []struct {
		key  string
		want string
	}{
		{"csv", "CSV"},
		{"CSV", "CSV"},
		{"text/csv", "CSV"},
		{"xls", "XLS"},
		{"excel", "XLS"},
		{"application/vnd.ms-excel", "XLS"},
		{"rdf", "RDF"},
		{"atom feed", "Atom Feed"},
		{"wms", "WMS"},
		{"shp", "SHP"},
		{"esri shapefile", "SHP"},
	}
	for _, tt := range tests {
		got := f.ShortName(tt.key)
		assert.Equal(t, tt.want, got, "key %q", tt.key)
	}
}

func TestLoadFormats_UnknownKey(t *testing.T) {
	f, err := LoadFormats("")
	require.NoError(t, err)

	_, ok := f.Get("not-a-format")
	assert.False(t, ok)
	assert.Equal(t, "", f.ShortName("not-a-format"))
}

func TestLoadFormats_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formats.json")
	doc := `[{"key": "foo", "short_name": "FOO", "title": "Foo File", "aliases": ["foofile"]}]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	f, err := LoadFormats(path)
	require.NoError(t, err)
	assert.Equal(t, "FOO", f.ShortName("foofile"))
	assert.Equal(t, "", f.ShortName("csv"))
}

func TestMungeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CSV", "csv"},
		{".xls", "xls"},
		{"  Excel  ", "excel"},
		{"text/csv", "text/csv"},
		{"rdf+xml", "rdf+xml"},
		{"CSV (zipped)", "csvzipped"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MungeFormat(tt.in), "input %q", tt.in)
	}
}
