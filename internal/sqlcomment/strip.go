// Package sqlcomment removes comments from SQL text while leaving string
// literals untouched.
//
// Recognised comments are line comments introduced by "--", "//" or "#"
// (running to the next newline) and block comments delimited by "/*" and
// "*/" (not nested). String literals are delimited by ' or " and a delimiter
// preceded by an odd number of backslashes is literal content.
//
// The scanner works on bytes. Every delimiter it looks for is ASCII and UTF-8
// continuation bytes never collide with ASCII, so multi-byte characters are
// copied through unchanged.
package sqlcomment

import "strings"

// Strip returns sql with every comment removed. String literals, including
// literals that contain comment markers, are copied verbatim. The newline
// that ends a line comment is kept so line numbering of the remaining code
// is preserved. An unterminated block comment swallows the rest of the
// input; an unterminated literal runs to the end of the input.
func Strip(sql string) string {
	return strip(sql, false)
}

// StripKeepLines behaves like Strip but also keeps newlines found inside
// block comments, so every retained character stays on its original line.
func StripKeepLines(sql string) string {
	return strip(sql, true)
}

func strip(sql string, keepBlockNewlines bool) string {
	if sql == "" {
		return ""
	}
	s := &stripper{
		src:         sql,
		keepBlockNL: keepBlockNewlines,
	}
	s.out.Grow(len(sql))
	s.run()
	return s.out.String()
}

// stateKind enumerates the scanner states. Exactly one is active at a time.
type stateKind int

const (
	stateNormal stateKind = iota
	stateString
	stateLineComment
	stateBlockComment
)

// state is the tagged scanner state. delim is only meaningful in stateString.
type state struct {
	kind  stateKind
	delim byte
}

type stripper struct {
	src         string
	pos         int
	st          state
	out         strings.Builder
	keepBlockNL bool

	// set by Split: a semicolon in stateNormal ends a statement
	split bool
	stmts []string
}

func (s *stripper) run() {
	for s.pos < len(s.src) {
		switch s.st.kind {
		case stateString:
			s.inString()
		case stateLineComment:
			s.inLineComment()
		case stateBlockComment:
			s.inBlockComment()
		default:
			s.normal()
		}
	}
}

// peek returns the byte after the current one, or 0 at end of input.
func (s *stripper) peek() byte {
	if i := s.pos + 1; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *stripper) normal() {
	c := s.src[s.pos]
	switch {
	case (c == '"' || c == '\'') && isLiteralBoundary(s.src, s.pos, c):
		s.st = state{kind: stateString, delim: c}
		s.out.WriteByte(c)
		s.pos++
	case c == ';' && s.split:
		s.flush()
		s.pos++
	case c == '#':
		s.st = state{kind: stateLineComment}
		s.pos++
	case c == '-' && s.peek() == '-':
		s.st = state{kind: stateLineComment}
		s.pos += 2
	case c == '/' && s.peek() == '/':
		s.st = state{kind: stateLineComment}
		s.pos += 2
	case c == '/' && s.peek() == '*':
		s.st = state{kind: stateBlockComment}
		s.pos += 2
	default:
		s.out.WriteByte(c)
		s.pos++
	}
}

func (s *stripper) inString() {
	c := s.src[s.pos]
	s.out.WriteByte(c)
	if c == s.st.delim && isLiteralBoundary(s.src, s.pos, s.st.delim) {
		s.st = state{kind: stateNormal}
	}
	s.pos++
}

func (s *stripper) inLineComment() {
	if s.src[s.pos] == '\n' {
		s.out.WriteByte('\n')
		s.st = state{kind: stateNormal}
	}
	s.pos++
}

func (s *stripper) inBlockComment() {
	c := s.src[s.pos]
	if c == '*' && s.peek() == '/' {
		s.st = state{kind: stateNormal}
		s.pos += 2
		return
	}
	if c == '\n' && s.keepBlockNL {
		s.out.WriteByte('\n')
	}
	s.pos++
}

// isLiteralBoundary reports whether the delimiter at text[pos] opens or
// closes a string literal. It does when text[pos] is delim and the run of
// backslashes directly before it has even length (zero included); an odd
// run escapes the delimiter.
func isLiteralBoundary(text string, pos int, delim byte) bool {
	if pos < 0 || pos >= len(text) || text[pos] != delim {
		return false
	}
	backslashes := 0
	for i := pos - 1; i >= 0 && text[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes&1 == 0
}
