package sqlcomment

import "strings"

// Split removes the comments from sql and cuts what remains into statements
// at every semicolon outside a string literal. Statements are trimmed and
// empty ones are dropped, so "SELECT 1;;" yields a single statement.
func Split(sql string) []string {
	if sql == "" {
		return nil
	}
	s := &stripper{src: sql, split: true}
	s.run()
	s.flush()
	return s.stmts
}

// flush ends the statement collected so far
func (s *stripper) flush() {
	if stmt := strings.TrimSpace(s.out.String()); stmt != "" {
		s.stmts = append(s.stmts, stmt)
	}
	s.out.Reset()
}
