package twelvedata

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC-USD": "BTC/USD",
		"eth-usd": "ETH/USD",
		"AAPL":    "AAPL",
		"BTC/USD": "BTC/USD",
		"BRK-B":   "BRK-B",
	}
	for in, want := range cases {
		if got := Symbol(in); got != want {
			t.Errorf("Symbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDailyCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "SOL/USD" || q.Get("outputsize") != "300" || q.Get("apikey") != "key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"ok","values":[
			{"datetime":"2026-10-15","open":"1","high":"2","low":"0.5","close":"1.5","volume":"100"},
			{"datetime":"2026-10-14","open":"1","high":"2","low":"0.5","close":"1.2"},
			{"datetime":"bad","open":"1","high":"2","low":"0.5","close":"1.2","volume":"1"}]}`))
	}))
	defer srv.Close()

	candles, err := NewClientWithBaseURL("key", srv.URL).DailyCandles(context.Background(), "SOL-USD", 300)
	if err != nil {
		t.Fatalf("DailyCandles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Close != 1.2 || !math.IsNaN(candles[0].Volume) {
		t.Fatalf("expected oldest bar first with NaN volume, got %+v", candles[0])
	}
}

func TestDailyCandlesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":400,"message":"symbol not found"}`))
	}))
	defer srv.Close()

	if _, err := NewClientWithBaseURL("key", srv.URL).DailyCandles(context.Background(), "NOPE", 10); err == nil {
		t.Fatal("expected error")
	}
}
