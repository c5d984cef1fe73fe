package sniff

import (
	"strings"

	"go.uber.org/zap"
)

// jsonSuccessTokens is the number of matched tokens after which a
// buffer is declared JSON even if it is truncated mid-structure, so a
// cut-off download is still recognized.
const jsonSuccessTokens = 5

type jsonFrame byte

const (
	frameObject jsonFrame = iota
	frameArray
)

type jsonExpect byte

const (
	expectValue jsonExpect = iota
	expectKeyOrClose
	expectColon
	expectCommaOrClose
	expectNothing
)

// IsJSON reports whether the buffer, which may be truncated, looks
// like JSON. It is an approximate recognizer, not a validator: it
// tracks only the stack of open objects/arrays and the token class
// valid at each position, and accepts once enough tokens have
// matched. It stays lenient enough to accept some invalid JSON.
func IsJSON(buf string) bool {
	s := jsonScanner{buf: buf}
	ok := s.run()
	if ok {
		zap.L().Debug("sniff: JSON detected", zap.Int("matches", s.matches))
	} else {
		zap.L().Debug("sniff: not JSON", zap.Int("matches", s.matches))
	}
	return ok
}

type jsonScanner struct {
	buf     string
	pos     int
	stack   []jsonFrame
	matches int
}

func (s *jsonScanner) run() bool {
	expect := expectValue
	for {
		s.skipSpace()
		if s.pos >= len(s.buf) {
			// Consumed without failure; truncation mid-structure is fine.
			return true
		}
		if s.matches >= jsonSuccessTokens {
			return true
		}

		c := s.buf[s.pos]
		switch expect {
		case expectValue:
			switch {
			case c == '{':
				s.push(frameObject)
				expect = expectKeyOrClose
			case c == '[':
				s.push(frameArray)
				expect = expectValue
			case c == ']' && s.top() == frameArray:
				// tolerate a trailing comma before an array close
				s.pop()
				expect = s.afterValue()
			default:
				if !s.scanScalar() {
					return false
				}
				expect = s.afterValue()
				continue
			}
			s.pos++
			s.matches++
		case expectKeyOrClose:
			if c == '}' {
				s.pos++
				s.matches++
				s.pop()
				expect = s.afterValue()
				continue
			}
			if !s.scanString() {
				return false
			}
			expect = expectColon
		case expectColon:
			if c != ':' {
				return false
			}
			s.pos++
			s.matches++
			expect = expectValue
		case expectCommaOrClose:
			switch {
			case c == ',':
				s.pos++
				s.matches++
				if s.top() == frameObject {
					expect = expectKeyOrClose
				} else {
					expect = expectValue
				}
			case c == '}' && s.top() == frameObject:
				s.pos++
				s.matches++
				s.pop()
				expect = s.afterValue()
			case c == ']' && s.top() == frameArray:
				s.pos++
				s.matches++
				s.pop()
				expect = s.afterValue()
			default:
				return false
			}
		case expectNothing:
			// Content beyond a completed top-level value is not JSON.
			return false
		}
	}
}

// afterValue returns the expectation that follows a completed value.
func (s *jsonScanner) afterValue() jsonExpect {
	if len(s.stack) == 0 {
		return expectNothing
	}
	return expectCommaOrClose
}

func (s *jsonScanner) push(f jsonFrame) { s.stack = append(s.stack, f) }

func (s *jsonScanner) pop() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *jsonScanner) top() jsonFrame {
	if len(s.stack) == 0 {
		return jsonFrame(0xFF)
	}
	return s.stack[len(s.stack)-1]
}

func (s *jsonScanner) skipSpace() {
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

// scanScalar consumes a string, number, or true/false/null literal.
func (s *jsonScanner) scanScalar() bool {
	c := s.buf[s.pos]
	switch {
	case c == '"':
		return s.scanString()
	case c == '-' || (c >= '0' && c <= '9'):
		return s.scanNumber()
	default:
		for _, lit := range []string{"true", "false", "null"} {
			if strings.HasPrefix(s.buf[s.pos:], lit) {
				s.pos += len(lit)
				s.matches++
				return true
			}
		}
		return false
	}
}

func (s *jsonScanner) scanString() bool {
	if s.pos >= len(s.buf) || s.buf[s.pos] != '"' {
		return false
	}
	i := s.pos + 1
	for i < len(s.buf) {
		switch s.buf[i] {
		case '\\':
			i += 2
		case '"':
			s.pos = i + 1
			s.matches++
			return true
		default:
			i++
		}
	}
	// unterminated string: truncated buffers only succeed via the
	// token threshold, which run() checks before each token
	return false
}

func (s *jsonScanner) scanNumber() bool {
	i := s.pos
	if i < len(s.buf) && s.buf[i] == '-' {
		i++
	}
	start := i
	for i < len(s.buf) && s.buf[i] >= '0' && s.buf[i] <= '9' {
		i++
	}
	if i == start {
		return false
	}
	if i < len(s.buf) && s.buf[i] == '.' {
		i++
		for i < len(s.buf) && s.buf[i] >= '0' && s.buf[i] <= '9' {
			i++
		}
	}
	if i < len(s.buf) && (s.buf[i] == 'e' || s.buf[i] == 'E') {
		i++
		if i < len(s.buf) && (s.buf[i] == '+' || s.buf[i] == '-') {
			i++
		}
		for i < len(s.buf) && s.buf[i] >= '0' && s.buf[i] <= '9' {
			i++
		}
	}
	s.pos = i
	s.matches++
	return true
}
