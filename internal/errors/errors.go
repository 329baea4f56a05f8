package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError represents a failure to open a data source
type ConnectionError struct {
	DataSource string
	Message    string
	Suggestion string
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("failed to connect to %s: %s", e.DataSource, e.Message)
	if e.Suggestion != "" {
		msg += "\nSuggestion: " + e.Suggestion
	}
	return msg
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(dataSource, message, suggestion string) *ConnectionError {
	return &ConnectionError{
		DataSource: dataSource,
		Message:    message,
		Suggestion: suggestion,
	}
}

// ExecutionError represents a statement rejected by the database
type ExecutionError struct {
	DataSource string
	Code       string // SQLSTATE for PostgreSQL, error number for MySQL
	Message    string
	Detail     string
	Position   int // 1-based character position reported by the server, 0 if unknown
	Line       int // 1-based line of Position in the submitted text, 0 if unknown
	Err        error
}

func (e *ExecutionError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	switch {
	case e.Position > 0 && e.Line > 0:
		msg = fmt.Sprintf("%s (at character %d, line %d)", msg, e.Position, e.Line)
	case e.Position > 0:
		msg = fmt.Sprintf("%s (at character %d)", msg, e.Position)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.DataSource != "" {
		return fmt.Sprintf("%s: %s", e.DataSource, msg)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError converts a driver error into an ExecutionError. Errors
// that did not come from the server are wrapped unchanged.
func NewExecutionError(dataSource string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &ExecutionError{
			DataSource: dataSource,
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Detail:     pgErr.Detail,
			Position:   int(pgErr.Position),
			Err:        err,
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &ExecutionError{
			DataSource: dataSource,
			Code:       fmt.Sprintf("%d", myErr.Number),
			Message:    myErr.Message,
			Err:        err,
		}
	}
	return fmt.Errorf("%s: %w", dataSource, err)
}
