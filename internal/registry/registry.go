package registry

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed resource_formats.json
var defaultFormats []byte

// Entry describes one canonical resource format.
type Entry struct {
	// Key is the primary lookup key, normally the file extension.
	Key string `json:"key"`
	// ShortName is the canonical format identifier, e.g. "CSV".
	ShortName string `json:"short_name"`
	// Title is the descriptive display name.
	Title string `json:"title"`
	// Mimetypes and Aliases are additional lookup keys: mimetypes,
	// top-level XML tag names, and common human spellings.
	Mimetypes []string `json:"mimetypes,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
}

// Formats is the catalog's format registry: an immutable lookup from
// lowercase extension, mimetype, tag name, or alias to a canonical
// format entry. Safe for concurrent readers once built.
type Formats struct {
	byKey map[string]Entry
}

// LoadFormats reads a format registry document from path, or the
// embedded default registry when path is empty.
func LoadFormats(path string) (*Formats, error) {
	data := defaultFormats
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: read formats %s", path)
		}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "registry: parse formats")
	}

	byKey := make(map[string]Entry, len(entries)*3)
	add := func(key string, e Entry) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		if _, dup := byKey[key]; dup {
			zap.L().Debug("registry: duplicate format key, keeping first",
				zap.String("key", key),
			)
			return
		}
		byKey[key] = e
	}
	for _, e := range entries {
		add(e.Key, e)
		add(e.ShortName, e)
		add(e.Title, e)
		for _, m := range e.Mimetypes {
			add(m, e)
		}
		for _, a := range e.Aliases {
			add(a, e)
		}
	}

	return &Formats{byKey: byKey}, nil
}

// Get looks up a format by extension, mimetype, tag name, or alias.
// The lookup is case-insensitive. ok is false for unknown keys.
func (f *Formats) Get(key string) (Entry, bool) {
	e, ok := f.byKey[strings.ToLower(strings.TrimSpace(key))]
	return e, ok
}

// ShortName returns the canonical short name for key, or "" if the
// key is unknown.
func (f *Formats) ShortName(key string) string {
	e, ok := f.Get(key)
	if !ok {
		return ""
	}
	return e.ShortName
}

// MungeFormat normalizes a publisher-declared format string towards a
// registry key: trimmed, lowercased, leading dot stripped, and all
// characters outside [a-z/+] removed.
func MungeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	format = strings.TrimPrefix(format, ".")
	var b strings.Builder
	for _, r := range format {
		if (r >= 'a' && r <= 'z') || r == '/' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
