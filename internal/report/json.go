package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONReporter formats results as JSON
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// Format formats the report as JSON and writes to the writer
func (r *JSONReporter) Format(rep *Report, writer io.Writer) error {
	data, err := r.marshal(rep)
	if err != nil {
		return err
	}

	if _, err = writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	_, err = writer.Write([]byte("\n"))
	return err
}

// FormatString returns the report as a JSON string
func (r *JSONReporter) FormatString(rep *Report) (string, error) {
	data, err := r.marshal(rep)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *JSONReporter) marshal(rep *Report) ([]byte, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return data, nil
}

// Name returns the name of this reporter
func (r *JSONReporter) Name() string {
	return "json"
}
