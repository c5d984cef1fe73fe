package sniff

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Turtle documents may carry "@prefix" or "@base" near the beginning.
var turtleAtRe = regexp.MustCompile(`(?m)^@(prefix|base) `)

// turtleTriplesRequired is how many triple-shaped lines a buffer with
// no @prefix/@base must contain to count as Turtle.
const turtleTriplesRequired = 5

// IsTurtle reports whether the buffer is a Turtle RDF document:
// either it declares a @prefix/@base, or it contains several
// triple-shaped statements.
func IsTurtle(buf string) bool {
	if turtleAtRe.MatchString(buf) {
		zap.L().Debug("sniff: Turtle detected, @prefix or @base")
		return true
	}

	matches := tripleRe().FindAllStringIndex(buf, turtleTriplesRequired)
	if len(matches) >= turtleTriplesRequired {
		zap.L().Debug("sniff: Turtle detected", zap.Int("triples", len(matches)))
		return true
	}
	zap.L().Debug("sniff: not Turtle", zap.Int("triples", len(matches)))
	return false
}

var (
	tripleOnce     sync.Once
	tripleCompiled *regexp.Regexp
)

// tripleRe returns the compiled triple matcher. Each RDF term may be
// an IRI ref, a blank-node label, a quoted or triple-quoted literal
// with optional language tag or datatype suffix, a signed decimal, or
// a boolean. Prefixed terms are not needed: a document that uses them
// would have had a detectable @prefix. Nested blank nodes,
// collections, and the 'a' shorthand are not supported.
func tripleRe() *regexp.Regexp {
	tripleOnce.Do(func() {
		term := `(<[^ >]+>|_:\S+|".+?"(@\w+)?(\^\^\S+)?|'.+?'(@\w+)?(\^\^\S+)?|""".+?"""(@\w+)` +
			`?(\^\^\S+)?|'''.+?'''(@\w+)?(\^\^\S+)?|[+-]?([0-9]+|[0-9]*\.[0-9]+)(E[+-]?[0-9]+)?|false|true)`

		// one statement, allowing predicate-object continuations via ';'
		triple := `(^T|;)\s*T T\s*(;|\.\s*$)`
		triple = strings.ReplaceAll(triple, "T", term)
		triple = strings.ReplaceAll(triple, " ", `\s+`)
		tripleCompiled = regexp.MustCompile(`(?m)` + triple)
	})
	return tripleCompiled
}
