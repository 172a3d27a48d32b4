package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biosonar/internal/models"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL points the client at another chart endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse values are pointers because Yahoo reports gaps as null.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCandles returns up to n daily candles, oldest first.
func (c *Client) DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	reqURL := fmt.Sprintf("%s/%s?interval=1d&range=%s", c.baseURL, url.PathEscape(Symbol(symbol)), rangeFor(n))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; biosonar/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no historical data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, high, low, closePrice := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		// Skip bars without a full OHLC.
		if math.IsNaN(open) || math.IsNaN(high) || math.IsNaN(low) || math.IsNaN(closePrice) {
			continue
		}
		candles = append(candles, models.Candle{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: at(quote.Volume, i),
		})
	}

	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

// rangeFor picks a chart range that covers n daily bars for equities.
func rangeFor(n int) string {
	switch {
	case n <= 20:
		return "1mo"
	case n <= 120:
		return "6mo"
	case n <= 250:
		return "1y"
	case n <= 500:
		return "2y"
	}
	return "5y"
}

// Symbol maps "BTC/USD" style pairs to Yahoo's "BTC-USD".
func Symbol(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "/", "-")
}
