// Package console implements the client side of the SQL console: it turns
// text typed or uploaded by a user into the comment-free, base64 encoded
// statement that is submitted to the executor.
package console

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/cybertec-postgresql/sqlconsole/internal/sqlcomment"
)

var (
	// ErrNoSQL is returned when nothing but whitespace and comments was given.
	ErrNoSQL = errors.New("the SQL statement to be executed does not exist")

	// ErrNoDataSource is returned when no data source name was given.
	ErrNoDataSource = errors.New("dataSource is not specified")
)

// Format selects how the server renders an execution result.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ExecuteRequest is the body of an executeSql call.
type ExecuteRequest struct {
	DataSource string `json:"dataSource"`
	SQL        string `json:"sql"` // base64 of the stripped statement
	Format     Format `json:"format,omitempty"`
}

// Prepare trims raw, removes its comments and trims the result again.
func Prepare(raw string) (string, error) {
	sql := strings.TrimSpace(raw)
	if sql == "" {
		return "", ErrNoSQL
	}
	sql = strings.TrimSpace(sqlcomment.Strip(sql))
	if sql == "" {
		return "", ErrNoSQL
	}
	return sql, nil
}

// Statement is SQL prepared from raw text that remembers the line of the
// raw text it starts on, so positions reported by a server can be mapped
// back to what the user submitted.
type Statement struct {
	SQL       string
	FirstLine int // 1-based
}

// PrepareLines is Prepare for server side use: block comments keep their
// newlines, so every line of SQL is a line of raw.
func PrepareLines(raw string) (*Statement, error) {
	stripped := sqlcomment.StripKeepLines(raw)
	sql := strings.TrimLeftFunc(stripped, unicode.IsSpace)
	first := 1 + strings.Count(stripped[:len(stripped)-len(sql)], "\n")
	sql = strings.TrimRightFunc(sql, unicode.IsSpace)
	if sql == "" {
		return nil, ErrNoSQL
	}
	return &Statement{SQL: sql, FirstLine: first}, nil
}

// Line returns the line of the raw text holding the 1-based character
// position pos of SQL. Positions past the end map to the last line.
func (s *Statement) Line(pos int) int {
	line := s.FirstLine
	n := 0
	for _, r := range s.SQL {
		n++
		if n >= pos {
			break
		}
		if r == '\n' {
			line++
		}
	}
	return line
}

// EncodeSQL returns the transport form of sql.
func EncodeSQL(sql string) string {
	return base64.StdEncoding.EncodeToString([]byte(sql))
}

// DecodeSQL reverses EncodeSQL.
func DecodeSQL(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("failed to decode sql: %w", err)
	}
	return string(data), nil
}

// NewExecuteRequest validates the data source name, prepares raw and
// encodes it for transport.
func NewExecuteRequest(dataSource, raw string) (*ExecuteRequest, error) {
	dataSource = strings.TrimSpace(dataSource)
	if dataSource == "" {
		return nil, ErrNoDataSource
	}
	sql, err := Prepare(raw)
	if err != nil {
		return nil, err
	}
	return &ExecuteRequest{
		DataSource: dataSource,
		SQL:        EncodeSQL(sql),
	}, nil
}
