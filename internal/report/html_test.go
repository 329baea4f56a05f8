package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

func sampleReport() *Report {
	return &Report{
		Title:     "main",
		Generated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Sections: []Section{
			{
				Title: "users.sql",
				SQL:   "SELECT id, name FROM users",
				Results: []*types.Result{{
					Query:    true,
					Columns:  []string{"id", "name"},
					Rows:     [][]any{{int64(1), "<b>alice</b>"}, {int64(2), nil}},
					Notices:  []string{"NOTICE: hello"},
					Duration: 1500 * time.Microsecond,
				}},
			},
			{
				Title: "update.sql",
				SQL:   "UPDATE users SET name = 'x'; SELECT count(*) AS total FROM users",
				Results: []*types.Result{
					{RowsAffected: 2},
					{Query: true, Columns: []string{"total"}, Rows: [][]any{{int64(2)}}},
				},
			},
			{
				Title: "broken.sql",
				SQL:   "SELEC 1",
				Error: `syntax error at or near "SELEC"`,
			},
		},
	}
}

func TestHTMLReporter_Format(t *testing.T) {
	rep := sampleReport()
	reporter := NewHTMLReporter()

	t.Run("Format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := reporter.Format(rep, &buf); err != nil {
			t.Fatalf("Format failed: %v", err)
		}
		output := buf.String()

		requiredElements := []string{
			"<!DOCTYPE html>",
			"<html",
			"<head>",
			"<body>",
			"</html>",
			"<title>main</title>",
			"<th>id</th><th>name</th>",
			"<td>1</td><td>&lt;b&gt;alice&lt;/b&gt;</td>",
			`<td class="null">NULL</td>`,
			"2 row(s) affected",
			"<th>total</th>",
			"1 row(s) in",
			"NOTICE: hello",
			"syntax error at or near &#34;SELEC&#34;",
			"sqlconsole",
		}
		for _, elem := range requiredElements {
			if !strings.Contains(output, elem) {
				t.Errorf("Missing required HTML element: %s", elem)
			}
		}
		if strings.Contains(output, "<b>alice</b>") {
			t.Error("cell values must be escaped")
		}
	})

	t.Run("FormatString", func(t *testing.T) {
		output, err := reporter.FormatString(rep)
		if err != nil {
			t.Fatalf("FormatString failed: %v", err)
		}
		if !strings.HasPrefix(output, "<!DOCTYPE html>") {
			t.Error("Missing DOCTYPE declaration")
		}
		if !strings.Contains(output, "Sun, 01 Mar 2026 12:00:00 UTC") {
			t.Error("Missing generation timestamp")
		}
	})

	t.Run("Name", func(t *testing.T) {
		if reporter.Name() != "html" {
			t.Errorf("Name() = %s, want html", reporter.Name())
		}
	})
}

func TestHTMLReporter_Summary(t *testing.T) {
	output, err := NewHTMLReporter().FormatString(sampleReport())
	if err != nil {
		t.Fatalf("FormatString failed: %v", err)
	}
	// 3 executed, 1 failed, 3 rows returned
	for _, want := range []string{
		"<div class=\"label\">Executed</div>\n                    <div class=\"value\">3</div>",
		"<div class=\"label\">Failed</div>\n                    <div class=\"value\">1</div>",
		"<div class=\"label\">Rows Returned</div>\n                    <div class=\"value\">3</div>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestHTMLReporter_EmptyReport(t *testing.T) {
	output, err := NewHTMLReporter().FormatString(&Report{})
	if err != nil {
		t.Fatalf("FormatString failed: %v", err)
	}
	if !strings.Contains(output, "<title>SQL Console</title>") {
		t.Error("expected default title")
	}
	if strings.Contains(output, "<table>") {
		t.Error("empty report should not contain tables")
	}
}
