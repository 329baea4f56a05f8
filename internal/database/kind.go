package database

import (
	"fmt"
	"strings"
)

// Kind identifies the database product behind a data source
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
	KindMySQL    Kind = "mysql"
)

// Kinds returns every supported kind
func Kinds() []Kind {
	return []Kind{KindPostgres, KindSQLite, KindMySQL}
}

// ParseKind accepts the canonical kind names and a few common aliases
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return KindPostgres, nil
	case "sqlite", "sqlite3":
		return KindSQLite, nil
	case "mysql", "mariadb":
		return KindMySQL, nil
	default:
		return "", fmt.Errorf("unsupported data source kind %q (supported: %v)", s, Kinds())
	}
}

// queryKeywords are the leading keywords of statements that return rows
var queryKeywords = map[string]bool{
	"select":   true,
	"show":     true,
	"with":     true,
	"values":   true,
	"explain":  true,
	"pragma":   true,
	"describe": true,
	"desc":     true,
	"table":    true,
}

// IsQuery reports whether sql starts with a keyword that produces a row set.
// Drivers that cannot tell a query from a command after the fact use this to
// choose between Query and Exec. Leading whitespace and opening parentheses
// are skipped.
func IsQuery(sql string) bool {
	sql = strings.TrimLeft(sql, " \t\r\n(")
	end := 0
	for end < len(sql) && isWordByte(sql[end]) {
		end++
	}
	return queryKeywords[strings.ToLower(sql[:end])]
}

func isWordByte(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}
