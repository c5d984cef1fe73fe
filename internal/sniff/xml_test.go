package sniff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/data-qa/internal/registry"
)

func testFormats(t *testing.T) *registry.Formats {
	t.Helper()
	f, err := registry.LoadFormats("")
	require.NoError(t, err)
	return f
}

func TestExtractTopLevelTag(t *testing.T) {
	tests := []struct {
		name     string
		buf      string
		wantTag  string
		wantOK   bool
	}{
		{"plain", `<catalog version="1"><entry/></catalog>`, "catalog", true},
		{"with declaration", `<?xml version="1.0"?><rdf:RDF xmlns:rdf="x">`, "rdf:RDF", true},
		{"with doctype", `<?xml version="1.0"?><!DOCTYPE foo><foo>`, "foo", true},
		{"bom junk", "\xef\xbb\xbf<data>", "data", true},
		{"not xml", "no tags here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, _, ok := ExtractTopLevelTag(tt.buf)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestIsXMLWithoutDeclaration(t *testing.T) {
	assert.True(t, IsXMLWithoutDeclaration(`<catalog><entry>1</entry></catalog>`))

	// long tag name without a namespace is likely bracketed text
	longTag := "<" + strings.Repeat("x", 25) + ">"
	assert.False(t, IsXMLWithoutDeclaration(longTag))

	// but a namespace declaration rescues it
	nsTag := "<" + strings.Repeat("x", 25) + ` xmlns:foo="http://example.org/">`
	assert.True(t, IsXMLWithoutDeclaration(nsTag))

	longAttrs := `<a href="` + strings.Repeat("y", 210) + `">`
	assert.False(t, IsXMLWithoutDeclaration(longAttrs))

	assert.False(t, IsXMLWithoutDeclaration("plain text"))
}

func TestXMLVariant(t *testing.T) {
	formats := testFormats(t)

	tests := []struct {
		name string
		buf  string
		want string
	}{
		{"rdf", `<?xml version="1.0"?><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`, "RDF"},
		{"wms 1.3", `<?xml version="1.0"?><WMS_Capabilities version="1.3.0">`, "WMS"},
		{"wms 1.1.1", `<?xml version="1.0"?><!DOCTYPE WMT_MS_Capabilities SYSTEM "x"><WMT_MS_Capabilities version="1.1.1">`, "WMS"},
		{"wfs 2.0", `<?xml version="1.0"?><wfs:WFS_Capabilities version="2.0.0">`, "WFS"},
		{"wfs 1.0", `<?xml version="1.0"?><WFS_Capabilities version="1.0.0">`, "WFS"},
		{"atom feed", `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">`, "Atom Feed"},
		{"iati", `<?xml version="1.0"?><iati-activities generated-datetime="2024-01-01">`, "IATI"},
		{"wmts", `<?xml version="1.0"?><Capabilities xmlns="http://www.opengis.net/wmts/1.0">`, "WMTS"},
		{"wcs capabilities", `<?xml version="1.0"?><Capabilities xmlns="http://www.opengis.net/wcs/2.0">`, "WCS"},
		{"wcs coverages", `<?xml version="1.0"?><CoverageDescriptions xmlns="http://www.opengis.net/wcs/2.0">`, "WCS"},
		{"kml", `<?xml version="1.0"?><kml xmlns="http://www.opengis.net/kml/2.2">`, "KML"},
		{"unknown tag", `<?xml version="1.0"?><mystery>`, "XML"},
		{"unparsable", `garbage with no tags`, "XML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := XMLVariant(tt.buf, formats)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Format)
		})
	}
}
