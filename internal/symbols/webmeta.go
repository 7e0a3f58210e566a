package symbols

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jlindqvist/weektrack/pkg/httputil"
	"github.com/jlindqvist/weektrack/pkg/logger"
)

const defaultProfileBaseURL = "https://finance.yahoo.com/quote"

// profileLabels maps the label text on a quote profile page to the
// attribute name stored for the symbol.
var profileLabels = map[string]string{
	"Sector(s):": "sector",
	"Sector:":    "sector",
	"Industry:":  "industry",
}

// Scraper pulls sector/industry profile attributes from quote pages. The
// result feeds the scorecard metadata join; a symbol that cannot be scraped
// simply stays without metadata.
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewScraper creates a profile scraper over the shared HTTP client.
func NewScraper(client *httputil.Client, log *logger.Logger) *Scraper {
	return NewScraperWithBaseURL(client, defaultProfileBaseURL, log)
}

// NewScraperWithBaseURL overrides the page base URL, used by tests.
func NewScraperWithBaseURL(client *httputil.Client, baseURL string, log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: client,
		logger:     log.WithField("module", "webmeta"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchProfile scrapes one symbol's profile attributes. Unknown symbols
// return an empty map, not an error.
func (s *Scraper) FetchProfile(ctx context.Context, symbol string) (map[string]string, error) {
	url := fmt.Sprintf("%s/%s/profile", s.baseURL, symbol)

	resp, err := s.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch profile page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return map[string]string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile page returned status %d", resp.StatusCode)
	}

	attrs, err := parseProfileHTML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse profile page: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"attrs":  len(attrs),
	}).Debug("Fetched profile metadata")
	return attrs, nil
}

// FetchAll scrapes profiles for every symbol and returns whatever could be
// collected. Per-symbol failures are logged and leave that symbol out.
func (s *Scraper) FetchAll(ctx context.Context, symbols []string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(symbols))
	for _, symbol := range symbols {
		attrs, err := s.FetchProfile(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Profile scrape failed")
			continue
		}
		if len(attrs) > 0 {
			out[symbol] = attrs
		}
	}
	return out
}

// parseProfileHTML walks label/value element pairs. Pages mark each
// attribute with a label element whose text ends in a colon, immediately
// followed by the value element.
func parseProfileHTML(r io.Reader) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]string)
	pending := ""
	doc.Find("span, dt, dd").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if pending != "" {
			if text != "" {
				attrs[pending] = text
			}
			pending = ""
			return
		}
		if name, ok := profileLabels[text]; ok {
			pending = name
		}
	})

	return attrs, nil
}
