package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jlindqvist/weektrack/internal/marketdata"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

func chartBody(timestamps []int64, closes []float64) string {
	ts := ""
	for i, t := range timestamps {
		if i > 0 {
			ts += ","
		}
		ts += fmt.Sprintf("%d", t)
	}
	cl := ""
	for i, c := range closes {
		if i > 0 {
			cl += ","
		}
		cl += fmt.Sprintf("%g", c)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`, ts, cl)
}

func unix(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC).Unix()
}

func TestFetchDailyCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("Expected interval=1d, got %s", got)
		}
		w.Write([]byte(chartBody(
			[]int64{unix(2026, time.August, 17), unix(2026, time.August, 18), unix(2026, time.August, 19)},
			[]float64{230.1, 231.4, 229.8},
		)))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	closes, err := client.FetchDailyCloses(context.Background(), "AAPL",
		time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchDailyCloses() error = %v", err)
	}

	if len(closes) != 3 {
		t.Fatalf("Expected 3 closes, got %d", len(closes))
	}

	want := time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC)
	if !closes[0].Date.Equal(want) {
		t.Errorf("First date = %v, want %v (time-of-day must be stripped)", closes[0].Date, want)
	}
	if closes[1].Close != 231.4 {
		t.Errorf("Second close = %v, want 231.4", closes[1].Close)
	}
}

func TestFetchDailyClosesSkipsNullCloses(t *testing.T) {
	// Yahoo encodes missing session closes as null; they decode to 0.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fmt.Sprintf(
			`{"chart":{"result":[{"timestamp":[%d,%d,%d],"indicators":{"quote":[{"close":[230.1,null,229.8]}]}}],"error":null}}`,
			unix(2026, time.August, 17), unix(2026, time.August, 18), unix(2026, time.August, 19))))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	closes, err := client.FetchDailyCloses(context.Background(), "AAPL",
		time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchDailyCloses() error = %v", err)
	}

	if len(closes) != 2 {
		t.Fatalf("Expected 2 closes after dropping null, got %d", len(closes))
	}
}

func TestFetchDailyClosesUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found"}}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	closes, err := client.FetchDailyCloses(context.Background(), "NOSUCH",
		time.Now().AddDate(0, 0, -7), time.Now())
	if err != nil {
		t.Fatalf("Unknown symbol must not error, got %v", err)
	}
	if len(closes) != 0 {
		t.Errorf("Expected empty result for unknown symbol, got %d closes", len(closes))
	}
}

func TestFetchDailyClosesSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	_, err := client.FetchDailyCloses(context.Background(), "AAPL",
		time.Now().AddDate(0, 0, -7), time.Now())
	if !errors.Is(err, marketdata.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetchLiveQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("range"); got != "5d" {
			t.Errorf("Expected range=5d, got %s", got)
		}
		w.Write([]byte(chartBody(
			[]int64{unix(2026, time.August, 18), unix(2026, time.August, 19)},
			[]float64{100, 104},
		)))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	quote, err := client.FetchLiveQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchLiveQuote() error = %v", err)
	}

	if !quote.Price.Valid || quote.Price.Float64 != 104 {
		t.Errorf("Price = %+v, want 104", quote.Price)
	}
	if !quote.PreviousClose.Valid || quote.PreviousClose.Float64 != 100 {
		t.Errorf("PreviousClose = %+v, want 100", quote.PreviousClose)
	}

	change := quote.IntradayChangePct()
	if !change.Valid || change.Float64 != 4 {
		t.Errorf("IntradayChangePct() = %+v, want 4", change)
	}
}

func TestFetchLiveQuoteSingleClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartBody([]int64{unix(2026, time.August, 19)}, []float64{104})))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	quote, err := client.FetchLiveQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchLiveQuote() error = %v", err)
	}

	if !quote.Price.Valid {
		t.Error("Expected Price to be set")
	}
	if quote.PreviousClose.Valid {
		t.Error("Expected PreviousClose to be absent with a single close")
	}
	if quote.IntradayChangePct().Valid {
		t.Error("Expected intraday change to be absent")
	}
}

func TestSameDayTicksCollapse(t *testing.T) {
	// Two timestamps inside the same session keep only the latest close.
	day := time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartBody(
			[]int64{day.Add(15 * time.Hour).Unix(), day.Add(20 * time.Hour).Unix()},
			[]float64{100, 101},
		)))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, logger.NewNop())

	closes, err := client.FetchDailyCloses(context.Background(), "AAPL", day.AddDate(0, 0, -1), day)
	if err != nil {
		t.Fatalf("FetchDailyCloses() error = %v", err)
	}
	if len(closes) != 1 {
		t.Fatalf("Expected 1 close, got %d", len(closes))
	}
	if closes[0].Close != 101 {
		t.Errorf("Close = %v, want 101 (latest tick wins)", closes[0].Close)
	}
}
