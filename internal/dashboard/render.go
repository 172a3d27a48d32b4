package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"biosonar/internal/models"
)

const (
	Title       = "BenesBörsenBiosonar"
	Placeholder = "-"
	StatusOK    = "OK"

	LabelIdle    = "Analyze"
	LabelLoading = "Analyzing…"

	Hint = "Note: the score sums the satisfied conditions (max 7)."

	timestampLayout = "2006-01-02 15:04:05"
)

// Columns are the table headers in display order.
var Columns = []string{"Symbol", "Price", "Score", "Signals", "Timestamp", "Status"}

// Signal is one rendered condition marker.
type Signal struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
}

// Row is one rendered table row. Signals is nil when the result carried no
// conditions, in which case the cell shows Placeholder.
type Row struct {
	Key       int      `json:"key"`
	Symbol    string   `json:"symbol"`
	Price     string   `json:"price"`
	Score     string   `json:"score"`
	Signals   []Signal `json:"signals"`
	Timestamp string   `json:"timestamp"`
	Status    string   `json:"status"`
	Failed    bool     `json:"failed"`
}

// HasSignals reports whether the result carried a conditions object.
func (r Row) HasSignals() bool {
	return r.Signals != nil
}

// View is everything the page needs to draw itself.
type View struct {
	Title          string   `json:"title"`
	Symbols        string   `json:"symbols"`
	Loading        bool     `json:"loading"`
	ButtonLabel    string   `json:"buttonLabel"`
	ButtonDisabled bool     `json:"buttonDisabled"`
	Columns        []string `json:"columns"`
	Rows           []Row    `json:"rows"`
	Hint           string   `json:"hint"`
}

// Render maps a state snapshot to a View. Timestamps are shown in loc.
func Render(s State, loc *time.Location) View {
	label := LabelIdle
	if s.Loading {
		label = LabelLoading
	}
	return View{
		Title:          Title,
		Symbols:        s.Symbols,
		Loading:        s.Loading,
		ButtonLabel:    label,
		ButtonDisabled: s.Loading,
		Columns:        Columns,
		Rows:           RenderRows(s.Results, loc),
		Hint:           Hint,
	}
}

// RenderRows produces one row per result, in order.
func RenderRows(results []models.AnalysisResult, loc *time.Location) []Row {
	if loc == nil {
		loc = time.Local
	}

	rows := make([]Row, 0, len(results))
	for i, r := range results {
		row := Row{
			Key:       i,
			Symbol:    r.Symbol,
			Price:     Placeholder,
			Score:     Placeholder,
			Timestamp: Placeholder,
			Status:    StatusOK,
		}
		if r.Close != nil {
			row.Price = FormatPrice(*r.Close)
		}
		if r.Score != nil {
			row.Score = r.Score.String()
		}
		if r.Conditions != nil {
			row.Signals = make([]Signal, 0, len(r.Conditions))
			for _, c := range r.Conditions {
				row.Signals = append(row.Signals, Signal{Name: c.Name, Satisfied: c.Satisfied})
			}
		}
		if r.AsOf != nil {
			row.Timestamp = FormatTimestamp(*r.AsOf, loc)
		}
		if r.Outcome() == models.OutcomeFailure {
			row.Status = *r.Error
			row.Failed = true
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatPrice renders v with exactly two decimals, rounding the shortest
// decimal form of v half away from zero (1.005 shows as 1.01).
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatTimestamp renders an ISO-8601 timestamp in loc. Values that do not
// parse are shown as received.
func FormatTimestamp(s string, loc *time.Location) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		layoutLoc := time.UTC
		if layout != time.RFC3339Nano {
			// ISO date-times without an offset are local time.
			layoutLoc = loc
		}
		if t, err := time.ParseInLocation(layout, s, layoutLoc); err == nil {
			return t.In(loc).Format(timestampLayout)
		}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.In(loc).Format(timestampLayout)
	}
	return s
}
