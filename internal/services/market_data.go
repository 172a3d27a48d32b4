package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"biosonar/internal/config"
	"biosonar/internal/indicators"
	"biosonar/internal/models"
	"biosonar/pkg/alphavantage"
	"biosonar/pkg/twelvedata"
	"biosonar/pkg/yahoo"
)

// HistorySource serves daily candles for a symbol, oldest first.
type HistorySource interface {
	Name() string
	DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error)
}

// MarketDataService handles concurrent history fetching
type MarketDataService struct {
	cache        *CacheService
	sources      []HistorySource
	workerPool   chan struct{} // Semaphore for bounded concurrency
	fetchTimeout time.Duration
	minRows      int
}

// NewMarketDataService wires Twelve Data and Alpha Vantage when they have
// keys; Yahoo needs none.
func NewMarketDataService(cfg *config.AnalyzerConfig, cache *CacheService) *MarketDataService {
	var sources []HistorySource
	if cfg.TwelveDataKey != "" {
		sources = append(sources, twelvedata.NewClient(cfg.TwelveDataKey))
	}
	sources = append(sources, yahoo.NewClient())
	if cfg.AlphaVantageKey != "" {
		sources = append(sources, alphavantage.NewClient(cfg.AlphaVantageKey))
	}

	svc := NewMarketDataServiceWithSources(cache, cfg.MaxConcurrentFetches, sources...)
	svc.minRows = cfg.MinHistoryRows
	return svc
}

func NewMarketDataServiceWithSources(cache *CacheService, maxConcurrent int, sources ...HistorySource) *MarketDataService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &MarketDataService{
		cache:        cache,
		sources:      sources,
		workerPool:   make(chan struct{}, maxConcurrent),
		fetchTimeout: 20 * time.Second,
	}
}

// Sources lists the configured source names in preference order.
func (s *MarketDataService) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

// FetchBatch fetches histories for many symbols using a worker pool. Every
// symbol ends up in exactly one of the two maps.
func (s *MarketDataService) FetchBatch(ctx context.Context, symbols []string, n int) (map[string]*models.History, map[string]error) {
	histories := make(map[string]*models.History)
	failures := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	seen := make(map[string]bool)
	for _, symbol := range symbols {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// Acquire worker slot (bounded concurrency)
			select {
			case s.workerPool <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failures[symbol] = ctx.Err()
				mu.Unlock()
				return
			}
			defer func() { <-s.workerPool }()

			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			h, err := s.FetchHistory(fetchCtx, symbol, n)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[symbol] = err
				return
			}
			histories[symbol] = h
		}(symbol)
	}

	wg.Wait()
	return histories, failures
}

// FetchHistory returns n daily candles for symbol, from cache or from the
// first source whose history can be scored. When no source delivers a usable
// history the longest one is returned uncached.
func (s *MarketDataService) FetchHistory(ctx context.Context, symbol string, n int) (*models.History, error) {
	if s.cache != nil {
		if cached, found := s.cache.GetHistory(ctx, symbol, n); found {
			return cached, nil
		}
	}
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("no history source configured")
	}

	// Fan-out: ask every source, first usable history wins
	type result struct {
		source  string
		candles []models.Candle
		err     error
	}

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan result, len(s.sources))
	for _, src := range s.sources {
		go func(src HistorySource) {
			candles, err := src.DailyCandles(fanCtx, symbol, n)
			if err == nil && len(candles) == 0 {
				err = fmt.Errorf("empty history")
			}
			resultCh <- result{src.Name(), candles, err}
		}(src)
	}

	// Fan-in
	var (
		errs []error
		best *result
	)
	for range s.sources {
		select {
		case res := <-resultCh:
			if res.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))
				continue
			}
			if !s.usable(res.candles) {
				log.Debugf("%s returned %d unusable candles for %s", res.source, len(res.candles), symbol)
				if best == nil || len(res.candles) > len(best.candles) {
					best = &res
				}
				continue
			}

			h := newHistory(symbol, res.source, res.candles)
			if s.cache != nil {
				if err := s.cache.SetHistory(ctx, symbol, n, h); err != nil {
					log.Warnf("cache history %s: %v", symbol, err)
				}
			}
			return h, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if best != nil {
		return newHistory(symbol, best.source, best.candles), nil
	}
	return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
}

// usable reports whether candles are long enough and complete enough to score.
func (s *MarketDataService) usable(candles []models.Candle) bool {
	if len(candles) < s.minRows {
		return false
	}
	return len(indicators.Compute(candles)) >= 2
}

func newHistory(symbol, source string, candles []models.Candle) *models.History {
	return &models.History{
		Symbol:    symbol,
		Candles:   candles,
		Source:    source,
		FetchedAt: time.Now().UTC(),
	}
}
