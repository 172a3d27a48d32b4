package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"biosonar/internal/models"
)

// DefaultSymbols seeds the symbol input on first load.
const DefaultSymbols = "AAPL,MSFT,NVDA,TSLA,SPY,BTC-USD,ETH-USD,SOL-USD"

// Analyzer fetches results for the raw symbols text.
type Analyzer interface {
	Analyze(ctx context.Context, symbols string) ([]models.AnalysisResult, error)
}

// Policy decides which completion of overlapping requests owns the view.
type Policy int

const (
	// LatestRequestWins applies only the response to the most recently
	// dispatched request; older responses are dropped.
	LatestRequestWins Policy = iota
	// LastResponseWins applies every completion in arrival order.
	LastResponseWins
)

// ParsePolicy maps the RACE_POLICY setting to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "latest-request", "":
		return LatestRequestWins, nil
	case "last-response":
		return LastResponseWins, nil
	}
	return 0, fmt.Errorf("unknown race policy %q", s)
}

func (p Policy) String() string {
	if p == LastResponseWins {
		return "last-response"
	}
	return "latest-request"
}

// State is a copy of the view state.
type State struct {
	Symbols string                  `json:"symbols"`
	Results []models.AnalysisResult `json:"results"`
	Loading bool                    `json:"loading"`
	Seq     uint64                  `json:"seq"`
}

// Dashboard owns the symbols text, the last applied results and the loading
// flag. All mutations go through mu.
type Dashboard struct {
	analyzer Analyzer
	policy   Policy
	ctx      context.Context

	mu      sync.Mutex
	symbols string
	results []models.AnalysisResult
	loading bool
	seq     uint64

	mount    sync.Once
	inflight sync.WaitGroup
}

type Option func(*Dashboard)

func WithPolicy(p Policy) Option {
	return func(d *Dashboard) { d.policy = p }
}

// WithContext sets the context used by fire-and-forget triggers.
func WithContext(ctx context.Context) Option {
	return func(d *Dashboard) { d.ctx = ctx }
}

// WithSymbols replaces the default seed list.
func WithSymbols(symbols string) Option {
	return func(d *Dashboard) { d.symbols = symbols }
}

func New(analyzer Analyzer, opts ...Option) *Dashboard {
	d := &Dashboard{
		analyzer: analyzer,
		policy:   LatestRequestWins,
		ctx:      context.Background(),
		symbols:  DefaultSymbols,
		results:  []models.AnalysisResult{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Symbols returns the current input text.
func (d *Dashboard) Symbols() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.symbols
}

// SetSymbols replaces the input text. It never starts a request.
func (d *Dashboard) SetSymbols(symbols string) {
	d.mu.Lock()
	d.symbols = symbols
	d.mu.Unlock()
}

func (d *Dashboard) Policy() Policy {
	return d.policy
}

// Snapshot copies the current state.
func (d *Dashboard) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]models.AnalysisResult, len(d.results))
	copy(results, d.results)
	return State{
		Symbols: d.symbols,
		Results: results,
		Loading: d.loading,
		Seq:     d.seq,
	}
}

// Mount starts the initial analysis the first time the page is displayed.
// It reports whether this call started it.
func (d *Dashboard) Mount() bool {
	mounted := false
	d.mount.Do(func() {
		d.Trigger()
		mounted = true
	})
	return mounted
}

// Trigger dispatches an analysis of the current symbols text in the
// background and returns its sequence number. Triggers are never blocked by
// a request already in flight.
func (d *Dashboard) Trigger() uint64 {
	seq, symbols := d.begin()

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.resolve(d.ctx, seq, symbols)
	}()
	return seq
}

// RunAnalysis dispatches an analysis and blocks until it resolved. The state
// is already updated when it returns; the error is only for callers that
// report it themselves.
func (d *Dashboard) RunAnalysis(ctx context.Context) error {
	seq, symbols := d.begin()
	return d.resolve(ctx, seq, symbols)
}

// Wait blocks until every background trigger has resolved.
func (d *Dashboard) Wait() {
	d.inflight.Wait()
}

func (d *Dashboard) begin() (uint64, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.loading = true
	return d.seq, d.symbols
}

func (d *Dashboard) resolve(ctx context.Context, seq uint64, symbols string) error {
	results, err := d.analyzer.Analyze(ctx, symbols)
	if err != nil {
		log.Errorf("analysis #%d for %q failed: %v", seq, symbols, err)
	}
	d.finish(seq, results, err)
	return err
}

func (d *Dashboard) finish(seq uint64, results []models.AnalysisResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.policy == LatestRequestWins && seq != d.seq {
		log.Warnf("dropping response to analysis #%d, superseded by #%d", seq, d.seq)
		return
	}

	d.loading = false
	if err != nil {
		return
	}
	if results == nil {
		results = []models.AnalysisResult{}
	}
	d.results = results
}
