package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"biosonar/internal/models"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithBaseURL returns a copy of the client using another endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = baseURL
	return &cp
}

func (c *Client) Name() string { return "alphavantage" }

type dailySeriesResponse struct {
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// DailyCandles returns up to n daily candles, oldest first.
func (c *Client) DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	outputSize := "compact"
	if n > 100 {
		outputSize = "full"
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var series dailySeriesResponse
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, err
	}

	switch {
	case series.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage: %s", series.ErrorMessage)
	case series.Note != "":
		return nil, fmt.Errorf("alpha vantage: %s", series.Note)
	case series.Information != "":
		return nil, fmt.Errorf("alpha vantage: %s", series.Information)
	case len(series.Series) == 0:
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	candles := make([]models.Candle, 0, len(series.Series))
	for day, bar := range series.Series {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			continue
		}
		open, errO := strconv.ParseFloat(bar.Open, 64)
		high, errH := strconv.ParseFloat(bar.High, 64)
		low, errL := strconv.ParseFloat(bar.Low, 64)
		closePrice, errC := strconv.ParseFloat(bar.Close, 64)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		volume, err := strconv.ParseFloat(bar.Volume, 64)
		if err != nil {
			volume = math.NaN()
		}
		candles = append(candles, models.Candle{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}
