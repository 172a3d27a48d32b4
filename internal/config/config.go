package config

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Race policies for overlapping analysis requests.
const (
	PolicyLatestRequest = "latest-request"
	PolicyLastResponse  = "last-response"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"3000"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"development"`
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8000"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"0s"`
	RacePolicy     string        `envconfig:"RACE_POLICY" default:"latest-request"`

	Analyzer AnalyzerConfig
}

// AnalyzerConfig drives cmd/analyzer, the service behind /analyze.
type AnalyzerConfig struct {
	Port                 string        `envconfig:"ANALYZER_PORT" default:"8000"`
	TwelveDataKey        string        `envconfig:"TWELVE_DATA_KEY"`
	AlphaVantageKey      string        `envconfig:"ALPHA_VANTAGE_KEY"`
	FirestoreProject     string        `envconfig:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentials string        `envconfig:"FIRESTORE_CREDENTIALS_FILE"`
	HistorySize          int           `envconfig:"HISTORY_SIZE" default:"300"`
	MinHistoryRows       int           `envconfig:"MIN_HISTORY_ROWS" default:"50"`
	MaxConcurrentFetches int           `envconfig:"MAX_CONCURRENT_FETCHES" default:"10"`
	CacheTTL             time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	AllowOrigins         string        `envconfig:"ALLOW_ORIGINS" default:"*"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Analyzer.TwelveDataKey == "" && cfg.Analyzer.AlphaVantageKey == "" {
		log.Debug("TWELVE_DATA_KEY and ALPHA_VANTAGE_KEY not set, analyzer uses Yahoo Finance only")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.RacePolicy {
	case PolicyLatestRequest, PolicyLastResponse:
	default:
		return fmt.Errorf("RACE_POLICY must be %q or %q, got %q", PolicyLatestRequest, PolicyLastResponse, c.RacePolicy)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must not be empty")
	}
	if c.Analyzer.HistorySize < c.Analyzer.MinHistoryRows {
		return fmt.Errorf("HISTORY_SIZE (%d) is smaller than MIN_HISTORY_ROWS (%d)", c.Analyzer.HistorySize, c.Analyzer.MinHistoryRows)
	}
	if c.Analyzer.MaxConcurrentFetches < 1 {
		return fmt.Errorf("MAX_CONCURRENT_FETCHES must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
