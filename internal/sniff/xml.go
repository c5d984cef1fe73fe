package sniff

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
)

// The first few bytes may be a BOM, then an optional declaration and
// doctype, then the top-level tag.
var xmlTopTagRe = regexp.MustCompile(`(?is)^.{0,3}\s*(<\?xml[^>]*>\s*)?(<!doctype[^>]*>\s*)?<([^>\s/]+)([^>]*)>`)

// ExtractTopLevelTag returns the name and raw attribute string of the
// buffer's first opening tag, declaration-aware. ok is false when no
// tag-shaped prefix is found.
func ExtractTopLevelTag(buf string) (name, attrs string, ok bool) {
	m := xmlTopTagRe.FindStringSubmatch(buf)
	if m == nil {
		return "", "", false
	}
	return m[3], m[4], true
}

// IsXMLWithoutDeclaration decides whether the buffer is XML that is
// simply missing the usual <?xml ...?> boilerplate. Oversized tag
// names or attribute strings without an xmlns: prefix are taken as
// bracketed non-XML text.
func IsXMLWithoutDeclaration(buf string) bool {
	name, attrs, ok := ExtractTopLevelTag(buf)
	if !ok {
		zap.L().Debug("sniff: not XML without declaration, no tag detected")
		return false
	}
	if !strings.Contains(attrs, "xmlns:") && (len(name) > 20 || len(attrs) > 200) {
		zap.L().Debug("sniff: not XML without declaration, unlikely first tag length",
			zap.String("tag", name),
		)
		return false
	}
	zap.L().Debug("sniff: XML detected", zap.String("tag", name))
	return true
}

// wfs 2.0 capabilities use a namespace-prefixed root tag
var wfsPrefixRe = regexp.MustCompile(`wfs:.*`)

// XMLVariant extracts the buffer's top-level tag, folds known variant
// root tags onto their canonical registry keys, and looks the result
// up in the format registry. An unrecognized or unparsable buffer
// still comes back as generic "XML".
func XMLVariant(buf string, formats *registry.Formats) *model.SniffResult {
	name, _, ok := ExtractTopLevelTag(buf)
	if !ok {
		zap.L().Debug("sniff: no top-level tag found, assuming plain XML")
		return &model.SniffResult{Format: "XML"}
	}
	tag := strings.ToLower(name)
	zap.L().Debug("sniff: top-level tag detected", zap.String("tag", tag))

	tag = strings.ReplaceAll(tag, "rdf:rdf", "rdf")
	tag = strings.ReplaceAll(tag, "wms_capabilities", "wms")    // WMS 1.3
	tag = strings.ReplaceAll(tag, "wmt_ms_capabilities", "wms") // WMS 1.1.1
	tag = wfsPrefixRe.ReplaceAllString(tag, "wfs")              // WFS 2.0
	tag = strings.ReplaceAll(tag, "wfs_capabilities", "wfs")    // WFS 1.0/1.1
	tag = strings.ReplaceAll(tag, "feed", "atom feed")
	if tag == "capabilities" && strings.Contains(buf, `xmlns="http://www.opengis.net/wmts/`) {
		tag = "wmts"
	}
	if (tag == "coveragedescriptions" || tag == "capabilities") &&
		strings.Contains(buf, `xmlns="http://www.opengis.net/wcs/`) {
		tag = "wcs"
	}

	if short := formats.ShortName(tag); short != "" {
		zap.L().Debug("sniff: XML variant detected", zap.String("format", short))
		return &model.SniffResult{Format: short}
	}
	zap.L().Warn("sniff: did not recognise XML variant", zap.String("tag", tag))
	return &model.SniffResult{Format: "XML"}
}
