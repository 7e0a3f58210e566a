package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/jlindqvist/weektrack/internal/calendar"
	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/pkg/config"
	"github.com/jlindqvist/weektrack/pkg/httputil"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

// Client fetches daily bars and live quotes from the Yahoo Finance chart API.
// All Yahoo calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	httpClient := httputil.New(log, cfg.Yahoo.Timeout).
		WithRateLimit(cfg.Yahoo.RatePerSec, cfg.Yahoo.RateBurst).
		WithUserAgent(cfg.Yahoo.UserAgent)

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "yahoo"),
		baseURL:    cfg.Yahoo.BaseURL,
	}
}

// NewClientWithBaseURL overrides the API host. Used by tests.
func NewClientWithBaseURL(baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.New(log, 5*time.Second).WithRetry(1, 10*time.Millisecond),
		logger:     log,
		baseURL:    baseURL,
	}
}

var _ marketdata.PriceSource = (*Client)(nil)

// FetchDailyCloses fetches daily closing prices for [from, to].
// Unknown symbols come back as an empty slice, not an error.
func (c *Client) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.DailyClose, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(calendar.Truncate(from).Unix(), 10))
	// Include the last day; Yahoo treats period2 as exclusive.
	params.Set("period2", strconv.FormatInt(calendar.Truncate(to).AddDate(0, 0, 1).Unix(), 10))

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	closes := result.dailyCloses()

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(closes),
	}).Debug("Fetched daily closes")

	return closes, nil
}

// FetchLiveQuote fetches the last two daily closes and snapshots them as
// price / previous close.
func (c *Client) FetchLiveQuote(ctx context.Context, symbol string) (marketdata.LiveQuote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "5d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return marketdata.LiveQuote{}, err
	}
	if result == nil {
		return marketdata.LiveQuote{}, nil
	}

	closes := result.dailyCloses()

	var quote marketdata.LiveQuote
	if n := len(closes); n >= 1 {
		quote.Price = null.FloatFrom(closes[n-1].Close)
		if n >= 2 {
			quote.PreviousClose = null.FloatFrom(closes[n-2].Close)
		}
	}

	return quote, nil
}

// fetchChart calls the chart endpoint and returns the first result, or nil
// when the symbol is unknown or has no data.
func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketdata.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	// Yahoo answers 404 for unknown symbols; that is "no data", not an outage.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", marketdata.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", marketdata.ErrSourceUnavailable, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", marketdata.ErrSourceUnavailable, err)
	}

	if len(parsed.Chart.Result) == 0 {
		return nil, nil
	}

	return &parsed.Chart.Result[0], nil
}
