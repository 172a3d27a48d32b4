package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"biosonar/internal/config"
	"biosonar/internal/models"
	"biosonar/internal/services"
)

// shortSource serves too few candles for any symbol.
type shortSource struct{}

func (shortSource) Name() string { return "short" }

func (shortSource) DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	return make([]models.Candle, 10), nil
}

func newAnalyzerApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.AnalyzerConfig{HistorySize: 300, MinHistoryRows: 50, MaxConcurrentFetches: 2, CacheTTL: time.Hour}

	cache := services.NewCacheService(context.Background(), cfg)
	t.Cleanup(func() { cache.Close() })

	md := services.NewMarketDataServiceWithSources(cache, cfg.MaxConcurrentFetches, shortSource{})
	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	RegisterAnalyzer(app,
		NewAnalyzeHandler(services.NewAnalysisService(cfg, md)),
		NewHealthHandler("biosonar-analyzer", nil),
	)
	return app
}

func TestAnalyzeRequiresSymbols(t *testing.T) {
	app := newAnalyzerApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analyze", nil))
	if err != nil {
		t.Fatalf("GET /analyze: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeEmptySymbols(t *testing.T) {
	app := newAnalyzerApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analyze?symbols=", nil))
	if err != nil {
		t.Fatalf("GET /analyze: %v", err)
	}
	var body models.AnalyzeResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Results == nil || len(body.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", body.Results)
	}
}

func TestAnalyzeShortHistoryRows(t *testing.T) {
	app := newAnalyzerApp(t)

	q := url.Values{"symbols": {"AAPL, BTC/USD"}}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analyze?"+q.Encode(), nil), 5000)
	if err != nil {
		t.Fatalf("GET /analyze: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body models.AnalyzeResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(body.Results))
	}
	for i, want := range []string{"AAPL", "BTC/USD"} {
		r := body.Results[i]
		if r.Symbol != want || r.Error == nil || *r.Error != services.ErrNotEnoughData {
			t.Fatalf("row %d: unexpected %+v", i, r)
		}
		if r.Debug == nil || r.Debug.Rows != 10 {
			t.Fatalf("row %d: expected debug rows 10, got %+v", i, r.Debug)
		}
	}
}

func TestAnalyzerHealth(t *testing.T) {
	app := newAnalyzerApp(t)

	for _, path := range []string{"/health", "/health/ready"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
