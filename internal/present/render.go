package present

import (
	"fmt"
	"sdlcpilot/internal/testcase"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Priority colors, mirroring the badge variants of the web UI.
var (
	colorCritical = lipgloss.Color("#e53935")
	colorHigh     = lipgloss.Color("#FFC107")
	colorMedium   = lipgloss.Color("#2196F3")
	colorLow      = lipgloss.Color("#8a94a6")
	colorBorder   = lipgloss.Color("#2a3850")
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// PriorityStyle returns the style used to display a priority badge.
func PriorityStyle(p testcase.Priority) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch p {
	case testcase.PriorityCritical:
		return s.Foreground(colorCritical)
	case testcase.PriorityHigh:
		return s.Foreground(colorHigh)
	case testcase.PriorityMedium:
		return s.Foreground(colorMedium)
	case testcase.PriorityLow:
		return s.Foreground(colorLow)
	default:
		return s
	}
}

// Table renders a compact overview of the test cases.
func Table(cases []testcase.TestCase) string {
	rows := make([][]string, 0, len(cases))
	for _, tc := range cases {
		rows = append(rows, []string{
			tc.ID,
			tc.Title,
			string(tc.Priority),
			string(tc.TestType),
			strconv.Itoa(len(tc.Steps)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("ID", "TITLE", "PRIORITY", "TYPE", "STEPS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(cases) {
				return PriorityStyle(cases[row].Priority).Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

// RenderMarkdown renders md for the terminal. style is a glamour standard
// style name ("dark", "light", "notty", ...) or "auto".
func RenderMarkdown(md string, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
