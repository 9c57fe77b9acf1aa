// Package matcher finds a retailer product for each shopping list item.
//
// Every item is searched independently: a failed search or a result with no
// acceptable product is recorded on that item and the remaining items are
// still matched.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/retail"
)

// Config controls product matching.
type Config struct {
	// MinConfidence is the lowest acceptable match score (default: 0.3).
	MinConfidence float64

	// RateInterval is the minimum time between retailer requests
	// (default: 2s, negative = unpaced).
	RateInterval time.Duration

	// Concurrency bounds parallel searches (default: 1).
	Concurrency int

	// Timeout bounds a single search (default: 30s).
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.3,
		RateInterval:  2 * time.Second,
		Concurrency:   1,
		Timeout:       30 * time.Second,
	}
}

// ErrNoAcceptableMatch is recorded when products were found but none scored
// high enough.
var ErrNoAcceptableMatch = errors.New("no product met the confidence threshold")

// ProductMatchError reports why one item has no product. It never aborts a run.
type ProductMatchError struct {
	Item  string
	Query string
	Err   error
}

func (e *ProductMatchError) Error() string {
	return fmt.Sprintf("match %q (query %q): %v", e.Item, e.Query, e.Err)
}

func (e *ProductMatchError) Unwrap() error { return e.Err }

// Matcher pairs shopping list items with retailer products.
type Matcher struct {
	searcher retail.Searcher
	cfg      Config
	limiter  *rate.Limiter
}

// New creates a Matcher. Zero config fields take their defaults.
func New(s retail.Searcher, cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.RateInterval == 0 {
		cfg.RateInterval = def.RateInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	limit := rate.Inf
	if cfg.RateInterval > 0 {
		limit = rate.Every(cfg.RateInterval)
	}

	return &Matcher{
		searcher: s,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Match searches for every item and returns one entry per item in input
// order. Per-item failures are recorded in the entry's Error field; the only
// error returned is the context's.
func (m *Matcher) Match(ctx context.Context, items []recipe.ShoppingListItem) ([]recipe.ItemMatch, error) {
	results := make([]recipe.ItemMatch, len(items))

	logger.Info("matching products",
		"items", len(items),
		"retailer", m.searcher.Name(),
		"concurrency", m.cfg.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for i, item := range items {
		g.Go(func() error {
			results[i], _ = m.MatchItem(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	matched := 0
	for _, r := range results {
		if r.Match != nil {
			matched++
		}
	}
	logger.Info("product matching complete", "matched", matched, "items", len(items))

	return results, nil
}

// MatchItem searches for a single item. On failure the returned entry has
// no Match, its Error holds the message, and the error is a
// *ProductMatchError.
func (m *Matcher) MatchItem(ctx context.Context, item recipe.ShoppingListItem) (recipe.ItemMatch, error) {
	query := retail.BuildQuery(item.Name, item.Category)
	result := recipe.ItemMatch{Item: item.Name, Query: query}

	match, err := m.find(ctx, item, query)
	if err != nil {
		merr := &ProductMatchError{Item: item.Name, Query: query, Err: err}
		logger.Warn("product match failed", "item", item.Name, "query", query, "error", err)
		result.Error = merr.Error()
		return result, merr
	}

	logger.Debug("product matched",
		"item", item.Name,
		"product", match.Name,
		"confidence", match.Confidence)
	result.Match = match
	return result, nil
}

func (m *Matcher) find(ctx context.Context, item recipe.ShoppingListItem, query string) (*recipe.ProductMatch, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	products, err := m.searcher.Search(searchCtx, query)
	if err != nil {
		return nil, err
	}

	best := Best(products, item.Name, item.Category, m.cfg.MinConfidence)
	if best == nil {
		return nil, fmt.Errorf("%w (%d candidates)", ErrNoAcceptableMatch, len(products))
	}
	return best, nil
}
