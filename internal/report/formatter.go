package report

import (
	"fmt"
	"io"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// Report is a titled set of execution results to render
type Report struct {
	Title     string    `json:"title"`
	Generated time.Time `json:"generated"`
	Sections  []Section `json:"sections"`
}

// Section is the outcome of one SQL text: a result per statement or an error
type Section struct {
	Title   string          `json:"title,omitempty"` // Script path or data source name
	SQL     string          `json:"sql,omitempty"`   // Executed text, comments stripped
	Results []*types.Result `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Single wraps the results of one SQL text into a report
func Single(title, sql string, results []*types.Result) *Report {
	return &Report{
		Title:     title,
		Generated: time.Now(),
		Sections:  []Section{{Title: title, SQL: sql, Results: results}},
	}
}

// Formatter is an interface for result report formatters
type Formatter interface {
	// Format formats the report and writes to the writer
	Format(rep *Report, writer io.Writer) error

	// FormatString returns the report as a string
	FormatString(rep *Report) (string, error)

	// Name returns the name of this formatter
	Name() string
}

// FormatType represents supported report formats
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
	FormatHTML FormatType = "html"
)

// GetFormatter returns a formatter for the specified format type
func GetFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextReporter(), nil
	case FormatJSON:
		return NewJSONReporter(), nil
	case FormatHTML:
		return NewHTMLReporter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: text, json, html)", format)
	}
}

// FormatToWriter formats a report to a writer using the specified format
func FormatToWriter(rep *Report, format FormatType, writer io.Writer) error {
	formatter, err := GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(rep, writer)
}

// FormatToString formats a report to a string using the specified format
func FormatToString(rep *Report, format FormatType) (string, error) {
	formatter, err := GetFormatter(format)
	if err != nil {
		return "", err
	}
	return formatter.FormatString(rep)
}

// ValidFormat checks if a format string is valid
func ValidFormat(format string) bool {
	switch FormatType(format) {
	case FormatText, FormatJSON, FormatHTML:
		return true
	default:
		return false
	}
}

// SupportedFormats returns a list of supported format names
func SupportedFormats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatHTML)}
}

// cellString renders a result value for display
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
