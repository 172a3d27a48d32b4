package services

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"biosonar/internal/config"
	"biosonar/internal/indicators"
	"biosonar/internal/models"
)

// ErrNotEnoughData is the per-symbol error for short or missing histories.
const ErrNotEnoughData = "not_enough_data"

// AnalysisService scores symbols from their daily history.
type AnalysisService struct {
	marketData  *MarketDataService
	historySize int
	minRows     int
	now         func() time.Time
}

func NewAnalysisService(cfg *config.AnalyzerConfig, marketData *MarketDataService) *AnalysisService {
	return &AnalysisService{
		marketData:  marketData,
		historySize: cfg.HistorySize,
		minRows:     cfg.MinHistoryRows,
		now:         time.Now,
	}
}

// ParseSymbols splits a comma separated list, trims entries and drops empty ones.
func ParseSymbols(raw string) []string {
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// Analyze scores every symbol in raw. Results are ordered by score, highest
// first; rows without a score go last. Per-symbol failures are rows, never
// errors.
func (a *AnalysisService) Analyze(ctx context.Context, raw string) models.AnalyzeResponse {
	symbols := ParseSymbols(raw)
	if len(symbols) == 0 {
		return models.AnalyzeResponse{Results: []models.AnalysisResult{}}
	}

	histories, failures := a.marketData.FetchBatch(ctx, symbols, a.historySize)
	for symbol, err := range failures {
		log.Warnf("history for %s unavailable: %v", symbol, err)
	}

	results := make([]models.AnalysisResult, 0, len(symbols))
	for _, symbol := range symbols {
		results = append(results, a.score(symbol, histories[symbol]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return scoreOf(results[i]) > scoreOf(results[j])
	})
	return models.AnalyzeResponse{Results: results}
}

func (a *AnalysisService) score(symbol string, h *models.History) models.AnalysisResult {
	var candles []models.Candle
	if h != nil {
		candles = h.Candles
	}
	if len(candles) < a.minRows {
		return notEnoughData(symbol, len(candles))
	}

	rows := indicators.Compute(candles)
	if len(rows) < 2 {
		return notEnoughData(symbol, len(rows))
	}

	prev, curr := rows[len(rows)-2], rows[len(rows)-1]
	conditions := indicators.Evaluate(prev, curr)
	score := json.Number(strconv.Itoa(indicators.Score(conditions)))
	closePrice := curr.Close
	asOf := a.now().UTC().Format(time.RFC3339)

	return models.AnalysisResult{
		Symbol:     symbol,
		Close:      &closePrice,
		Price:      &closePrice,
		Score:      &score,
		Conditions: conditions,
		AsOf:       &asOf,
		Debug:      &models.Debug{Rows: len(rows)},
	}
}

func notEnoughData(symbol string, rows int) models.AnalysisResult {
	msg := ErrNotEnoughData
	return models.AnalysisResult{
		Symbol: symbol,
		Error:  &msg,
		Debug:  &models.Debug{Rows: rows},
	}
}

func scoreOf(r models.AnalysisResult) float64 {
	if r.Score == nil {
		return -1
	}
	v, err := r.Score.Float64()
	if err != nil {
		return -1
	}
	return v
}
