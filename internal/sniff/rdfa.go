package sniff

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	rdfaAboutRe    = regexp.MustCompile(`<[^>]+\sabout="[^"]+"[^>]*>`)
	rdfaPropertyRe = regexp.MustCompile(`<[^>]+\sproperty="[^"]+"[^>]*>`)
)

// HasRDFa reports whether the HTML buffer carries RDFa annotations.
// A cheap substring check gates the attribute-shaped regexes.
func HasRDFa(buf string) bool {
	if !strings.Contains(buf, "about=") || !strings.Contains(buf, "property=") {
		return false
	}
	if !rdfaAboutRe.MatchString(buf) {
		return false
	}
	if !rdfaPropertyRe.MatchString(buf) {
		return false
	}
	zap.L().Debug("sniff: RDFa attributes found in HTML")
	return true
}
