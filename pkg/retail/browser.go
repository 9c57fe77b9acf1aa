package retail

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/fetcher"
)

// DefaultBrowserBaseURL is the storefront searched by BrowserSearcher.
const DefaultBrowserBaseURL = "https://www.walmart.com"

// Product tile selectors on the storefront search page. The first selector
// that yields text wins.
var (
	tileSelector   = "div[data-item-id]"
	titleSelectors = []string{
		"span[data-automation-id='product-title']",
		"span.normal",
		"span.f6",
	}
	priceSelectors = []string{
		"[data-automation-id='product-price']",
		"div.price-main",
		"span.price",
	}
	linkSelector = "a[href*='/ip/']"
)

// maxTiles bounds how many tiles are parsed per search page.
const maxTiles = 10

var priceRe = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d{1,2})?)`)

// BrowserSearcher scrapes the storefront search page.
type BrowserSearcher struct {
	fetcher fetcher.Fetcher
	baseURL string
	wait    time.Duration
}

// BrowserOption configures a BrowserSearcher.
type BrowserOption func(*BrowserSearcher)

// WithBaseURL overrides the storefront URL.
func WithBaseURL(baseURL string) BrowserOption {
	return func(s *BrowserSearcher) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithSettleTime waits after the tiles appear so prices can render.
func WithSettleTime(d time.Duration) BrowserOption {
	return func(s *BrowserSearcher) {
		s.wait = d
	}
}

// NewBrowserSearcher creates a searcher that loads pages with f. A dynamic
// fetcher is needed for the live storefront; a static one works for
// server-rendered mirrors.
func NewBrowserSearcher(f fetcher.Fetcher, opts ...BrowserOption) *BrowserSearcher {
	s := &BrowserSearcher{fetcher: f, baseURL: DefaultBrowserBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search implements Searcher.
func (s *BrowserSearcher) Search(ctx context.Context, query string) ([]Product, error) {
	searchURL := s.baseURL + "/search?q=" + url.QueryEscape(query)

	content, err := s.fetcher.Fetch(ctx, searchURL, fetcher.Options{
		WaitForSelector: tileSelector,
		WaitDuration:    s.wait,
	})
	if err != nil {
		return nil, err
	}

	products, err := ParseSearchPage(content.HTML, searchURL)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoResults
	}

	logger.Debug("retail browser results", "query", query, "count", len(products))
	return products, nil
}

// Name implements Searcher.
func (s *BrowserSearcher) Name() string {
	return ModeBrowser
}

// ParseSearchPage extracts product tiles from a storefront search page.
// Tiles without a title are skipped. Relative links are resolved against
// pageURL.
func ParseSearchPage(html, pageURL string) ([]Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var products []Product
	doc.Find(tileSelector).EachWithBreak(func(_ int, tile *goquery.Selection) bool {
		name := firstText(tile, titleSelectors)
		if name == "" {
			return true
		}

		p := Product{
			ItemID: strings.TrimSpace(tile.AttrOr("data-item-id", "")),
			Name:   name,
			Price:  ParsePrice(firstText(tile, priceSelectors)),
		}
		if href, ok := tile.Find(linkSelector).First().Attr("href"); ok {
			p.URL = resolve(base, href)
		}

		products = append(products, p)
		return len(products) < maxTiles
	})

	return products, nil
}

// ParsePrice reads the first dollar amount in s ("current price $3.47").
// It returns 0 when s has none.
func ParsePrice(s string) float64 {
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, css := range selectors {
		if t := strings.Join(strings.Fields(sel.Find(css).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil || base == nil || u.IsAbs() {
		return href
	}
	return base.ResolveReference(u).String()
}
