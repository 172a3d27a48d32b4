package cli

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"biosonar/internal/dashboard"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(lipgloss.Color("#111827")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#374151")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	scoreStyle = cellStyle.Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC2626")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)
)

const (
	colScore  = 2
	colStatus = 5
)

// RenderTable draws the state as a bordered terminal table with the same
// columns and cell texts as the web page.
func RenderTable(s dashboard.State, loc *time.Location) string {
	view := dashboard.Render(s, loc)

	rows := make([][]string, 0, len(view.Rows))
	for _, r := range view.Rows {
		rows = append(rows, []string{r.Symbol, r.Price, r.Score, signalsCell(r), r.Timestamp, r.Status})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))).
		Headers(view.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == colStatus && row >= 0 && row < len(view.Rows) && view.Rows[row].Failed:
				return errorStyle.Padding(0, 1)
			case col == colScore:
				return scoreStyle
			}
			return cellStyle
		})

	return titleStyle.Render(view.Title) + "\n" + t.String()
}

func signalsCell(r dashboard.Row) string {
	if !r.HasSignals() {
		return dashboard.Placeholder
	}
	lines := make([]string, 0, len(r.Signals))
	for _, sig := range r.Signals {
		mark := "—"
		if sig.Satisfied {
			mark = "✅"
		}
		lines = append(lines, sig.Name+" "+mark)
	}
	return strings.Join(lines, "\n")
}

// DisplayLoading shows the symbols being analyzed with the busy label.
func DisplayLoading(s dashboard.State) string {
	return loadingStyle.Render(dashboard.LabelLoading) + " " + infoStyle.Render(s.Symbols)
}

func DisplayInfo(message string) string {
	return infoStyle.Render(message)
}
