package report

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	nullStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("240"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// TextReporter formats results as terminal tables
type TextReporter struct{}

// NewTextReporter creates a new text reporter
func NewTextReporter() *TextReporter {
	return &TextReporter{}
}

// Format formats the report as text and writes to the writer
func (r *TextReporter) Format(rep *Report, writer io.Writer) error {
	s, err := r.FormatString(rep)
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, s)
	return err
}

// FormatString returns the report as text
func (r *TextReporter) FormatString(rep *Report) (string, error) {
	var b strings.Builder
	for i := range rep.Sections {
		s := &rep.Sections[i]
		if i > 0 {
			b.WriteString("\n")
		}
		if s.Title != "" && len(rep.Sections) > 1 {
			b.WriteString(titleStyle.Render("== "+s.Title) + "\n")
		}
		if s.Error != "" {
			b.WriteString(errorStyle.Render("ERROR: ") + s.Error + "\n")
			continue
		}
		for _, res := range s.Results {
			if len(res.Columns) > 0 {
				b.WriteString(renderTable(res.Columns, res.Rows) + "\n")
			}
			for _, n := range res.Notices {
				b.WriteString(noticeStyle.Render(n) + "\n")
			}
			b.WriteString(mutedStyle.Render(statusLine(res)) + "\n")
		}
	}
	return b.String(), nil
}

func renderTable(columns []string, rows [][]any) string {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = cellString(v)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(columns...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(rows) && col < len(rows[row]) && rows[row][col] == nil {
				return nullStyle
			}
			return cellStyle
		})
	return t.String()
}

// Name returns the name of this reporter
func (r *TextReporter) Name() string {
	return "text"
}
