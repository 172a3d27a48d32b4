package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"biosonar/internal/models"
)

const defaultBaseURL = "https://api.twelvedata.com"

type Client struct {
	apiKey string
	http   *resty.Client
}

func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(15 * time.Second)

	return &Client{apiKey: apiKey, http: c}
}

func (c *Client) Name() string { return "twelvedata" }

type timeSeriesResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// DailyCandles returns up to n daily candles, oldest first.
func (c *Client) DailyCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     Symbol(symbol),
			"interval":   "1day",
			"outputsize": strconv.Itoa(n),
			"apikey":     c.apiKey,
			"timezone":   "UTC",
			"order":      "ASC",
		}).
		Get("/time_series")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("twelve data returned status %d", resp.StatusCode())
	}

	var series timeSeriesResponse
	if err := json.Unmarshal(resp.Body(), &series); err != nil {
		return nil, err
	}
	if series.Status == "error" {
		return nil, fmt.Errorf("twelve data: %s", series.Message)
	}
	if series.Values == nil {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	candles := make([]models.Candle, 0, len(series.Values))
	for _, v := range series.Values {
		date, err := parseDatetime(v.Datetime)
		if err != nil {
			continue
		}
		open, errO := strconv.ParseFloat(v.Open, 64)
		high, errH := strconv.ParseFloat(v.High, 64)
		low, errL := strconv.ParseFloat(v.Low, 64)
		closePrice, errC := strconv.ParseFloat(v.Close, 64)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		volume, err := strconv.ParseFloat(v.Volume, 64)
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

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	return candles, nil
}

func parseDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateTime, s)
}

var yahooPair = regexp.MustCompile(`^([A-Za-z0-9]+)-([A-Za-z]{3})$`)

// Symbol maps Yahoo style crypto pairs ("BTC-USD") to Twelve Data's "BTC/USD".
func Symbol(s string) string {
	if m := yahooPair.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1] + "/" + m[2])
	}
	return s
}
