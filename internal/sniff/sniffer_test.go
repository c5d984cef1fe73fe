package sniff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/model"
)

// fakeClassifier returns a canned verdict without shelling out.
type fakeClassifier struct {
	result *model.SniffResult
	err    error
}

func (f *fakeClassifier) Classify(string) (*model.SniffResult, error) {
	return f.result, f.err
}

func newTestSniffer(t *testing.T, sig SignatureClassifier) *Sniffer {
	t.Helper()
	if sig == nil {
		sig = &fakeClassifier{}
	}
	s := NewSniffer(testFormats(t), testScores(t), sig)
	s.excelProbe = func(string) bool { return false }
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sniffOne(t *testing.T, s *Sniffer, path string) *model.SniffResult {
	t.Helper()
	result, err := s.Sniff(path)
	require.NoError(t, err)
	return result
}

func TestSniff_CSV(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,age,city\n")
	for range 20 {
		b.WriteString("alice,30,london\n")
	}
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "data.csv", b.String()))
	require.NotNil(t, result)
	assert.Equal(t, "CSV", result.Format)
}

func TestSniff_JSON(t *testing.T) {
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "data.json", `{"rows": [{"a": 1}, {"a": 2}]}`))
	require.NotNil(t, result)
	assert.Equal(t, "JSON", result.Format)
}

func TestSniff_XMLVariantRDF(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
</rdf:RDF>`
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "data.rdf", content))
	require.NotNil(t, result)
	assert.Equal(t, "RDF", result.Format)
}

func TestSniff_ZippedShapefile(t *testing.T) {
	path := writeZip(t, "x.shp", "x.dbf", "x.shx")
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, path)
	require.NotNil(t, result)
	assert.Equal(t, "SHP", result.Format)
}

func TestSniff_ZippedCSV(t *testing.T) {
	path := writeZip(t, "2023.csv", "2024.csv", "readme.txt")
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, path)
	require.NotNil(t, result)
	assert.Equal(t, "CSV", result.Format)
	assert.Equal(t, model.ContainerZIP, result.Container)
}

func TestSniff_HTMLWithRDFa(t *testing.T) {
	content := `<!DOCTYPE html>
<html><body>
<div about="http://example.org/doc"><span property="dc:title">T</span></div>
</body></html>`
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "page.html", content))
	require.NotNil(t, result)
	assert.Equal(t, "RDFa", result.Format)
}

func TestSniff_PlainHTML(t *testing.T) {
	content := `<!DOCTYPE html><html><body><p>hello</p></body></html>`
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "page.html", content))
	require.NotNil(t, result)
	assert.Equal(t, "HTML", result.Format)
}

func TestSniff_TXTRefinesToTurtle(t *testing.T) {
	content := "@prefix ex: <http://example.org/> .\nex:a ex:b ex:c .\n"
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "data.ttl", content))
	require.NotNil(t, result)
	assert.Equal(t, "TTL", result.Format)
}

func TestSniff_TXTRefinesToPSV(t *testing.T) {
	var b strings.Builder
	b.WriteString("name|age|city\n")
	for range 20 {
		b.WriteString("alice|30|london\n")
	}
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "data.txt", b.String()))
	require.NotNil(t, result)
	assert.Equal(t, "PSV", result.Format)
}

func TestSniff_OctetStreamViaSignature(t *testing.T) {
	sig := &fakeClassifier{result: &model.SniffResult{Format: "DOC"}}
	s := newTestSniffer(t, sig)
	result := sniffOne(t, s, writeFile(t, "blob.bin", "\x00\x01\x02\x03\x04\x05\x06\x07"))
	require.NotNil(t, result)
	assert.Equal(t, "DOC", result.Format)
}

func TestSniff_OctetStreamViaExcelProbe(t *testing.T) {
	s := newTestSniffer(t, nil)
	s.excelProbe = func(string) bool { return true }
	result := sniffOne(t, s, writeFile(t, "blob.bin", "\x00\x01\x02\x03\x04\x05\x06\x07"))
	require.NotNil(t, result)
	assert.Equal(t, "XLS", result.Format)
}

func TestSniff_Unknown(t *testing.T) {
	s := newTestSniffer(t, nil)
	result := sniffOne(t, s, writeFile(t, "blob.bin", "\x00\x01\x02\x03\x04\x05\x06\x07"))
	assert.Nil(t, result)
}

func TestSniff_MissingFile(t *testing.T) {
	s := newTestSniffer(t, nil)
	_, err := s.Sniff(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}
