package models

import (
	"encoding/json"
	"time"
)

// AnalyzeResponse is the body of GET /analyze
type AnalyzeResponse struct {
	Results []AnalysisResult `json:"results"`
}

// Outcome tags an AnalysisResult as a computed row or a per-symbol failure.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeFailure {
		return "failure"
	}
	return "success"
}

// AnalysisResult is one symbol's row. Every field except Symbol is optional;
// the backend does not promise that success and error fields are exclusive.
type AnalysisResult struct {
	Symbol     string       `json:"symbol"`
	Close      *float64     `json:"close,omitempty"`
	Price      *float64     `json:"price,omitempty"`
	Score      *json.Number `json:"score,omitempty"`
	Conditions Conditions   `json:"conditions"`
	AsOf       *string      `json:"as_of,omitempty"`
	Error      *string      `json:"error,omitempty"`
	Debug      *Debug       `json:"debug,omitempty"`
}

// UnmarshalJSON decodes a row field by field. A field of the wrong type is
// treated as absent, so one odd row never fails the whole response. A row
// that is not an object decodes as an empty row.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	*r = AnalysisResult{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}

	r.Symbol = textOf(fields["symbol"])
	r.Close = floatOf(fields["close"])
	r.Price = floatOf(fields["price"])
	r.Score = numberOf(fields["score"])
	r.AsOf = stringOf(fields["as_of"])

	if raw, ok := fields["conditions"]; ok {
		var c Conditions
		if err := c.UnmarshalJSON(raw); err == nil {
			r.Conditions = c
		}
	}

	// Any non-null error marks the row failed, whatever its type.
	if raw, ok := fields["error"]; ok && !isNull(raw) {
		msg := textOf(raw)
		r.Error = &msg
	}

	if raw, ok := fields["debug"]; ok && !isNull(raw) {
		var d Debug
		if err := json.Unmarshal(raw, &d); err == nil {
			r.Debug = &d
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func stringOf(raw json.RawMessage) *string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return nil
	}
	return &s
}

func floatOf(raw json.RawMessage) *float64 {
	var f float64
	if isNull(raw) || json.Unmarshal(raw, &f) != nil {
		return nil
	}
	return &f
}

func numberOf(raw json.RawMessage) *json.Number {
	if isNull(raw) || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return nil
	}
	n := json.Number(raw)
	return &n
}

// textOf returns a JSON string's value, or the raw JSON text of anything else.
func textOf(raw json.RawMessage) string {
	if s := stringOf(raw); s != nil {
		return *s
	}
	if isNull(raw) {
		return ""
	}
	return string(raw)
}

// Debug carries backend diagnostics. It is never rendered.
type Debug struct {
	Rows int `json:"rows"`
}

// Outcome derives the row tag from the error field.
func (r AnalysisResult) Outcome() Outcome {
	if r.Error != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date" firestore:"date"`
	Open   float64   `json:"open" firestore:"open"`
	High   float64   `json:"high" firestore:"high"`
	Low    float64   `json:"low" firestore:"low"`
	Close  float64   `json:"close" firestore:"close"`
	Volume float64   `json:"volume" firestore:"volume"`
}

// History is a symbol's candle series in ascending date order.
type History struct {
	Symbol    string    `json:"symbol" firestore:"symbol"`
	Candles   []Candle  `json:"candles" firestore:"candles"`
	Source    string    `json:"source" firestore:"source"` // "twelvedata", "yahoo" or "alphavantage"
	FetchedAt time.Time `json:"fetchedAt" firestore:"fetchedAt"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
