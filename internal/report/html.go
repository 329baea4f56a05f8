package report

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// HTMLReporter formats results as an HTML document with one table per section
type HTMLReporter struct{}

// NewHTMLReporter creates a new HTML reporter
func NewHTMLReporter() *HTMLReporter {
	return &HTMLReporter{}
}

// Format formats the report as HTML and writes to the writer
func (r *HTMLReporter) Format(rep *Report, writer io.Writer) error {
	if err := r.writeHeader(rep, writer); err != nil {
		return err
	}
	if err := r.writeSummary(rep, writer); err != nil {
		return err
	}
	for i := range rep.Sections {
		if err := r.writeSection(&rep.Sections[i], writer); err != nil {
			return err
		}
	}
	return r.writeFooter(writer)
}

// writeHeader writes the HTML document header with CSS
func (r *HTMLReporter) writeHeader(rep *Report, writer io.Writer) error {
	timestamp := time.Now().Format(time.RFC1123)
	if !rep.Generated.IsZero() {
		timestamp = rep.Generated.Format(time.RFC1123)
	}
	title := rep.Title
	if title == "" {
		title = "SQL Console"
	}

	_, err := fmt.Fprintf(writer, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; background: #f5f5f5; color: #333; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        header { background: #2c3e50; color: white; padding: 30px 0; margin-bottom: 30px; }
        header h1 { font-size: 2em; margin-bottom: 10px; }
        header .meta { opacity: 0.8; font-size: 0.9em; }
        .summary { background: white; border-radius: 8px; padding: 25px; margin-bottom: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .summary-stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; }
        .stat-card { background: #f8f9fa; padding: 20px; border-radius: 6px; border-left: 4px solid #3498db; }
        .stat-card .label { font-size: 0.85em; color: #7f8c8d; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 8px; }
        .stat-card .value { font-size: 2em; font-weight: bold; color: #2c3e50; }
        .result { background: white; border-radius: 8px; padding: 25px; margin-bottom: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); overflow-x: auto; }
        .result h3 { margin-bottom: 15px; color: #2c3e50; font-family: 'Courier New', monospace; }
        .result pre.sql { background: #282c34; color: #abb2bf; padding: 10px 15px; border-radius: 6px; margin-bottom: 15px; white-space: pre-wrap; }
        .result table { border-collapse: collapse; width: 100%%; font-family: 'Courier New', monospace; font-size: 0.9em; }
        .result th { background: #ecf0f1; text-align: left; padding: 6px 10px; border-bottom: 2px solid #bdc3c7; }
        .result td { padding: 4px 10px; border-bottom: 1px solid #ecf0f1; white-space: pre; }
        .result td.null { color: #95a5a6; font-style: italic; }
        .result .status { color: #7f8c8d; margin-top: 10px; font-size: 0.9em; }
        .result .notice { color: #856404; background: #fff3cd; padding: 4px 10px; margin-top: 6px; border-radius: 4px; }
        .result .error { color: #721c24; background: #f8d7da; padding: 10px; border-radius: 4px; white-space: pre-wrap; }
        footer { text-align: center; padding: 30px 0; color: #7f8c8d; font-size: 0.9em; }
    </style>
</head>
<body>
    <header>
        <div class="container">
            <h1>%s</h1>
            <div class="meta">Generated: %s</div>
        </div>
    </header>
    <div class="container">
`, html.EscapeString(title), html.EscapeString(title), timestamp)
	return err
}

// writeSummary writes the statement and row totals
func (r *HTMLReporter) writeSummary(rep *Report, writer io.Writer) error {
	failed, rows := 0, 0
	for _, s := range rep.Sections {
		if s.Error != "" {
			failed++
		}
		for _, res := range s.Results {
			rows += len(res.Rows)
		}
	}

	_, err := fmt.Fprintf(writer, `        <section class="summary">
            <div class="summary-stats">
                <div class="stat-card">
                    <div class="label">Executed</div>
                    <div class="value">%d</div>
                </div>
                <div class="stat-card">
                    <div class="label">Failed</div>
                    <div class="value">%d</div>
                </div>
                <div class="stat-card">
                    <div class="label">Rows Returned</div>
                    <div class="value">%d</div>
                </div>
            </div>
        </section>

`, len(rep.Sections), failed, rows)
	return err
}

// writeSection writes the result table or error of a single execution
func (r *HTMLReporter) writeSection(s *Section, writer io.Writer) error {
	var b strings.Builder
	b.WriteString("        <section class=\"result\">\n")
	if s.Title != "" {
		fmt.Fprintf(&b, "            <h3>%s</h3>\n", html.EscapeString(s.Title))
	}
	if s.SQL != "" {
		fmt.Fprintf(&b, "            <pre class=\"sql\">%s</pre>\n", html.EscapeString(s.SQL))
	}

	switch {
	case s.Error != "":
		fmt.Fprintf(&b, "            <div class=\"error\">%s</div>\n", html.EscapeString(s.Error))
	default:
		for _, res := range s.Results {
			writeTable(&b, res.Columns, res.Rows)
			fmt.Fprintf(&b, "            <div class=\"status\">%s</div>\n", html.EscapeString(statusLine(res)))
			for _, n := range res.Notices {
				fmt.Fprintf(&b, "            <div class=\"notice\">%s</div>\n", html.EscapeString(n))
			}
		}
	}
	b.WriteString("        </section>\n\n")

	_, err := io.WriteString(writer, b.String())
	return err
}

func writeTable(b *strings.Builder, columns []string, rows [][]any) {
	if len(columns) == 0 {
		return
	}
	b.WriteString("            <table>\n                <tr>")
	for _, c := range columns {
		fmt.Fprintf(b, "<th>%s</th>", html.EscapeString(c))
	}
	b.WriteString("</tr>\n")
	for _, row := range rows {
		b.WriteString("                <tr>")
		for _, v := range row {
			if v == nil {
				b.WriteString(`<td class="null">NULL</td>`)
				continue
			}
			fmt.Fprintf(b, "<td>%s</td>", html.EscapeString(cellString(v)))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("            </table>\n")
}

// writeFooter writes the HTML document footer
func (r *HTMLReporter) writeFooter(writer io.Writer) error {
	_, err := io.WriteString(writer, `        <footer>
            Generated by <strong>sqlconsole</strong>
        </footer>
    </div>
</body>
</html>
`)
	return err
}

// FormatString returns the report as an HTML string
func (r *HTMLReporter) FormatString(rep *Report) (string, error) {
	var buf strings.Builder
	if err := r.Format(rep, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Name returns the name of this reporter
func (r *HTMLReporter) Name() string {
	return "html"
}

// statusLine summarises one successful statement
func statusLine(res *types.Result) string {
	var msg string
	if res.Query {
		msg = fmt.Sprintf("%d row(s)", len(res.Rows))
		if res.Truncated {
			msg += " (truncated)"
		}
	} else {
		msg = fmt.Sprintf("%d row(s) affected", res.RowsAffected)
	}
	return fmt.Sprintf("%s in %s", msg, res.Duration.Round(time.Microsecond))
}
