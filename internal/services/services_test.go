package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"biosonar/internal/config"
	"biosonar/internal/models"
)

type fakeSource struct {
	name    string
	mu      sync.Mutex
	calls   map[string]int
	candles map[string][]models.Candle
	err     error
	delay   time.Duration
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, calls: map[string]int{}, candles: map[string][]models.Candle{}}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	candles, ok := f.candles[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func (f *fakeSource) callsFor(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func wave(n int, drift float64) []models.Candle {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/2) + float64(i)*drift
		out[i] = models.Candle{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func testAnalyzerConfig() *config.AnalyzerConfig {
	return &config.AnalyzerConfig{
		HistorySize:          300,
		MinHistoryRows:       50,
		MaxConcurrentFetches: 4,
		CacheTTL:             time.Hour,
	}
}

func TestParseSymbols(t *testing.T) {
	got := ParseSymbols(" AAPL, ,MSFT,,BTC/USD ")
	want := []string{"AAPL", "MSFT", "BTC/USD"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(ParseSymbols("")) != 0 {
		t.Fatal("expected no symbols for empty input")
	}
}

func TestAnalyzeScoresAndSorts(t *testing.T) {
	src := newFakeSource("fake")
	src.candles["UP"] = wave(300, 0.5)
	src.candles["FLAT"] = wave(300, 0)
	src.candles["SHORT"] = wave(20, 0)

	cfg := testAnalyzerConfig()
	cache := newCacheService(cfg.CacheTTL, nil)
	defer cache.Close()
	svc := NewAnalysisService(cfg, NewMarketDataServiceWithSources(cache, cfg.MaxConcurrentFetches, src))
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	resp := svc.Analyze(context.Background(), "MISSING,SHORT,FLAT,UP")
	if len(resp.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(resp.Results))
	}

	// Scored rows first, failed rows keep their input order.
	for i := 0; i < 2; i++ {
		r := resp.Results[i]
		if r.Score == nil || r.Error != nil {
			t.Fatalf("row %d: expected a scored row, got %+v", i, r)
		}
		if len(r.Conditions) != 7 {
			t.Fatalf("row %d: expected 7 conditions, got %d", i, len(r.Conditions))
		}
		if r.AsOf == nil || *r.AsOf != "2026-10-18T12:00:00Z" {
			t.Fatalf("row %d: unexpected as_of %v", i, r.AsOf)
		}
		if r.Close == nil || r.Price == nil || *r.Close != *r.Price {
			t.Fatalf("row %d: expected close and price", i)
		}
	}
	if scoreOf(resp.Results[0]) < scoreOf(resp.Results[1]) {
		t.Fatalf("expected descending scores")
	}
	if resp.Results[2].Symbol != "MISSING" || resp.Results[3].Symbol != "SHORT" {
		t.Fatalf("expected failed rows in input order, got %s, %s", resp.Results[2].Symbol, resp.Results[3].Symbol)
	}
	for _, r := range resp.Results[2:] {
		if r.Error == nil || *r.Error != ErrNotEnoughData {
			t.Fatalf("expected not_enough_data for %s, got %+v", r.Symbol, r)
		}
	}
	if resp.Results[3].Debug == nil || resp.Results[3].Debug.Rows != 20 {
		t.Fatalf("expected debug rows 20, got %+v", resp.Results[3].Debug)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	cfg := testAnalyzerConfig()
	svc := NewAnalysisService(cfg, NewMarketDataServiceWithSources(nil, 1, newFakeSource("fake")))

	resp := svc.Analyze(context.Background(), " , ")
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty results, got %#v", resp.Results)
	}
}

func TestFetchHistoryFallsBackToWorkingSource(t *testing.T) {
	broken := newFakeSource("broken")
	broken.err = errors.New("rate limited")
	working := newFakeSource("working")
	working.candles["AAPL"] = wave(60, 0)
	working.delay = 10 * time.Millisecond

	svc := NewMarketDataServiceWithSources(nil, 2, broken, working)
	h, err := svc.FetchHistory(context.Background(), "AAPL", 300)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if h.Source != "working" || len(h.Candles) != 60 {
		t.Fatalf("unexpected history %s with %d candles", h.Source, len(h.Candles))
	}
}

func TestAnalyzeWaitsForUsableHistory(t *testing.T) {
	fast := newFakeSource("fast")
	fast.candles["AAPL"] = wave(10, 0)
	slow := newFakeSource("slow")
	slow.candles["AAPL"] = wave(300, 0.5)
	slow.delay = 20 * time.Millisecond

	cfg := testAnalyzerConfig()
	cache := newCacheService(cfg.CacheTTL, nil)
	defer cache.Close()
	md := NewMarketDataService(cfg, cache)
	md.sources = []HistorySource{fast, slow}
	svc := NewAnalysisService(cfg, md)

	for run := 0; run < 2; run++ {
		resp := svc.Analyze(context.Background(), "AAPL")
		r := resp.Results[0]
		if r.Error != nil || r.Score == nil {
			t.Fatalf("run %d: expected a scored row, got %+v", run, r)
		}
		if r.Debug == nil || r.Debug.Rows < 2 {
			t.Fatalf("run %d: unexpected debug %+v", run, r.Debug)
		}
	}
	if n := slow.callsFor("AAPL"); n != 1 {
		t.Fatalf("expected the full history to be cached, got %d slow calls", n)
	}
}

func TestFetchHistorySkipsHistoryWithoutVolume(t *testing.T) {
	noVolume := newFakeSource("novolume")
	candles := wave(300, 0)
	for i := range candles {
		candles[i].Volume = math.NaN()
	}
	noVolume.candles["AAPL"] = candles
	full := newFakeSource("full")
	full.candles["AAPL"] = wave(300, 0)
	full.delay = 10 * time.Millisecond

	svc := NewMarketDataServiceWithSources(nil, 2, noVolume, full)
	h, err := svc.FetchHistory(context.Background(), "AAPL", 300)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if h.Source != "full" {
		t.Fatalf("expected the complete history, got %s", h.Source)
	}
}

func TestFetchHistoryFallsBackToLongestUncached(t *testing.T) {
	short := newFakeSource("short")
	short.candles["AAPL"] = wave(10, 0)
	longer := newFakeSource("longer")
	longer.candles["AAPL"] = wave(20, 0)
	longer.delay = 10 * time.Millisecond

	cache := newCacheService(time.Hour, nil)
	defer cache.Close()
	svc := NewMarketDataServiceWithSources(cache, 2, short, longer)
	svc.minRows = 50

	for i := 0; i < 2; i++ {
		h, err := svc.FetchHistory(context.Background(), "AAPL", 300)
		if err != nil {
			t.Fatalf("FetchHistory: %v", err)
		}
		if h.Source != "longer" || len(h.Candles) != 20 {
			t.Fatalf("expected the longest history, got %s with %d candles", h.Source, len(h.Candles))
		}
	}
	if n := longer.callsFor("AAPL"); n != 2 {
		t.Fatalf("expected unusable history to stay uncached, got %d calls", n)
	}
}

func TestFetchHistoryAllSourcesFail(t *testing.T) {
	a := newFakeSource("a")
	a.err = errors.New("down")
	b := newFakeSource("b")

	svc := NewMarketDataServiceWithSources(nil, 2, a, b)
	if _, err := svc.FetchHistory(context.Background(), "AAPL", 300); err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestFetchHistoryUsesCache(t *testing.T) {
	src := newFakeSource("fake")
	src.candles["AAPL"] = wave(60, 0)
	cache := newCacheService(time.Hour, nil)
	defer cache.Close()

	svc := NewMarketDataServiceWithSources(cache, 2, src)
	for i := 0; i < 3; i++ {
		if _, err := svc.FetchHistory(context.Background(), "AAPL", 300); err != nil {
			t.Fatalf("FetchHistory: %v", err)
		}
	}
	if n := src.callsFor("AAPL"); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
}

func TestFetchBatchDeduplicates(t *testing.T) {
	src := newFakeSource("fake")
	src.candles["AAPL"] = wave(60, 0)

	svc := NewMarketDataServiceWithSources(nil, 1, src)
	histories, failures := svc.FetchBatch(context.Background(), []string{"AAPL", "AAPL", "NOPE"}, 300)

	if len(histories) != 1 || histories["AAPL"] == nil {
		t.Fatalf("unexpected histories %v", histories)
	}
	if failures["NOPE"] == nil {
		t.Fatalf("expected failure for NOPE")
	}
	if n := src.callsFor("AAPL"); n != 1 {
		t.Fatalf("expected one call for AAPL, got %d", n)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[string, int](time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}

	c.sweep(time.Now().Add(2 * time.Minute))
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to be swept")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestHistoryKeyIsDocumentSafe(t *testing.T) {
	if got := historyKey("btc/usd", 300); got != "BTC_USD:300" {
		t.Fatalf("unexpected key %q", got)
	}
}
