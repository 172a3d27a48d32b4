package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"biosonar/internal/models"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Backend talks to the analysis service.
type Backend struct {
	baseURL string
	http    *resty.Client
}

// NewBackend returns a client for baseURL. A zero timeout leaves the request
// bounded only by the caller's context and the transport.
func NewBackend(baseURL string, timeout time.Duration) *Backend {
	baseURL = strings.TrimRight(baseURL, "/")

	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")

	return &Backend{baseURL: baseURL, http: c}
}

// BaseURL returns the configured backend address.
func (b *Backend) BaseURL() string {
	return b.baseURL
}

// Analyze issues GET /analyze?symbols=<symbols> with the text exactly as given.
// A body without "results" decodes to an empty slice.
func (b *Backend) Analyze(ctx context.Context, symbols string) ([]models.AnalysisResult, error) {
	resp, err := b.http.R().
		SetContext(ctx).
		SetQueryParam("symbols", symbols).
		Get("/analyze")
	if err != nil {
		return nil, fmt.Errorf("request analyze: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}

	var body models.AnalyzeResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	if body.Results == nil {
		return []models.AnalysisResult{}, nil
	}
	return body.Results, nil
}

// Health calls GET /health on the backend.
func (b *Backend) Health(ctx context.Context) error {
	resp, err := b.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("request health: %w", err)
	}
	if !resp.IsSuccess() {
		return &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
