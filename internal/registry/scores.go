package registry

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

//go:embed format_scores.json
var defaultScores []byte

// Scores maps canonical format short names to openness scores (0-5),
// assuming the resource is obtainable and openly licensed. It is
// built once at startup and immutable afterwards, so it is safe for
// concurrent readers.
type Scores struct {
	byFormat map[string]int
}

// LoadScores reads a score-table document from path, or the embedded
// default table when path is empty. The document is an ordered list
// of [formatKey, integerScore] pairs; a pair whose key is "_comment"
// is skipped. A duplicate key or a non-integer score is a
// configuration error: the load fails rather than returning a partial
// table.
func LoadScores(path string) (*Scores, error) {
	data := defaultScores
	name := "embedded format_scores.json"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: read scores %s", path)
		}
		name = path
	}

	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrapf(err, "registry: invalid JSON syntax in %s", name)
	}

	byFormat := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, eris.Errorf("registry: %s: entry must be a [format, score] pair", name)
		}
		var format string
		if err := json.Unmarshal(pair[0], &format); err != nil {
			return nil, eris.Wrapf(err, "registry: %s: format key must be a string", name)
		}
		if format == "_comment" {
			continue
		}
		var score int
		if err := json.Unmarshal(pair[1], &score); err != nil {
			return nil, eris.Errorf("registry: %s: score must be an integer for %q", name, format)
		}
		if _, dup := byFormat[format]; dup {
			return nil, eris.Errorf("registry: %s: duplicate resource format identifier %q", name, format)
		}
		byFormat[format] = score
	}

	return &Scores{byFormat: byFormat}, nil
}

// Get returns the openness score configured for the given canonical
// format short name. ok is false when the table has no entry, which
// callers must treat as "unscored", not zero.
func (s *Scores) Get(format string) (int, bool) {
	score, ok := s.byFormat[format]
	return score, ok
}

// Len returns the number of configured formats.
func (s *Scores) Len() int {
	return len(s.byFormat)
}
