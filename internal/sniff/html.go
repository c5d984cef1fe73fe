package sniff

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	htmlTagRe = regexp.MustCompile(`(?is)^.{0,3}\s*(<\?xml[^>]*>\s*)?(<!doctype[^>]*>\s*)?<html[^>]*>`)
	iatiTagRe = regexp.MustCompile(`(?is)^.{0,3}\s*(<\?xml[^>]*>\s*)?(<!doctype[^>]*>\s*)?<iati-(activities|organisations)[^>]*>`)
)

// IsHTML reports whether the buffer opens with an HTML tag.
func IsHTML(buf string) bool {
	if htmlTagRe.MatchString(buf) {
		zap.L().Debug("sniff: HTML tag detected")
		return true
	}
	return false
}

// IsIATI reports whether the buffer opens with an IATI activities or
// organisations tag. MIME detection regularly mistakes IATI for HTML.
func IsIATI(buf string) bool {
	if iatiTagRe.MatchString(buf) {
		zap.L().Debug("sniff: IATI tag detected")
		return true
	}
	return false
}

// htmlMarkers are the tags that give away an HTML page mislabelled as
// JavaScript by MIME detection of script-heavy pages.
var htmlMarkers = []string{"<!DOCTYPE html", "<html", "<head", "<body"}

// ContainsHTMLTag reports whether any common HTML tag appears in the
// buffer.
func ContainsHTMLTag(buf string) bool {
	for _, tag := range htmlMarkers {
		if strings.Contains(buf, tag) {
			return true
		}
	}
	return false
}
