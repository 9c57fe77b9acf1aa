package matcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/retail"
)

// fakeSearcher answers from a query -> products table.
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]retail.Product
	errs     map[string]error
	queries  []string
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]retail.Product, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	products, ok := f.results[query]
	if !ok {
		return nil, retail.ErrNoResults
	}
	return products, nil
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func unpaced() Config {
	return Config{RateInterval: -1}
}

var shoppingItems = []recipe.ShoppingListItem{
	{Name: "Garlic", Category: "produce"},
	{Name: "Unsalted butter", Category: "dairy"},
	{Name: "Spaghetti", Category: "pantry"},
}

func TestMatcher_Match(t *testing.T) {
	s := &fakeSearcher{results: map[string][]retail.Product{
		"fresh Garlic": {
			{ItemID: "1", Name: "Garlic Seeds for Planting", Price: 4.99},
			{ItemID: "2", Name: "Fresh Whole Garlic, 3 Count", Price: 1.98, URL: "https://shop.example/ip/2"},
		},
		"dairy Unsalted butter": {
			{ItemID: "3", Name: "Great Value Unsalted Butter Sticks, 16 oz", Price: 3.74},
		},
		"Spaghetti": {
			{ItemID: "4", Name: "Barilla Spaghetti Pasta, 16 oz Box", Price: 1.52},
		},
	}}

	results, err := New(s, unpaced()).Match(context.Background(), shoppingItems)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(results) != len(shoppingItems) {
		t.Fatalf("results = %d, want %d", len(results), len(shoppingItems))
	}

	for i, r := range results {
		if r.Item != shoppingItems[i].Name {
			t.Errorf("result %d is for %q, want %q (order not preserved)", i, r.Item, shoppingItems[i].Name)
		}
		if r.Match == nil {
			t.Errorf("%s: no match (%s)", r.Item, r.Error)
		}
	}
	if got := results[0].Match; got.ItemID != "2" || got.Confidence != 1 {
		t.Errorf("garlic matched %+v, want the fresh garlic not seeds", got)
	}
	if results[0].Query != "fresh Garlic" {
		t.Errorf("Query = %q", results[0].Query)
	}
}

func TestMatcher_FailedItemDoesNotAbort(t *testing.T) {
	s := &fakeSearcher{
		results: map[string][]retail.Product{
			"fresh Garlic": {{ItemID: "2", Name: "Fresh Garlic", Price: 1.98}},
			"Spaghetti":    {{ItemID: "4", Name: "Spaghetti Pasta", Price: 1.52}},
		},
		errs: map[string]error{"dairy Unsalted butter": errors.New("connection reset")},
	}

	results, err := New(s, unpaced()).Match(context.Background(), shoppingItems)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if results[1].Match != nil {
		t.Errorf("failed item has match %+v", results[1].Match)
	}
	if !strings.Contains(results[1].Error, "connection reset") {
		t.Errorf("Error = %q", results[1].Error)
	}
	if results[0].Match == nil || results[2].Match == nil {
		t.Error("other items should keep their matches")
	}
}

func TestMatcher_MatchItemErrors(t *testing.T) {
	s := &fakeSearcher{results: map[string][]retail.Product{
		"fresh Ground beef": {{ItemID: "9", Name: "Beef Flavor Dog Treats", Price: 5}},
		"Quinoa":            {{ItemID: "8", Name: "Paper Towels", Price: 9}},
	}}
	m := New(s, unpaced())

	tests := []struct {
		item   recipe.ShoppingListItem
		wantIs error
	}{
		{recipe.ShoppingListItem{Name: "Ground beef", Category: "meat"}, ErrNoAcceptableMatch},
		{recipe.ShoppingListItem{Name: "Quinoa"}, ErrNoAcceptableMatch},
		{recipe.ShoppingListItem{Name: "Saffron", Category: "spices"}, retail.ErrNoResults},
	}
	for _, tt := range tests {
		t.Run(tt.item.Name, func(t *testing.T) {
			result, err := m.MatchItem(context.Background(), tt.item)
			var merr *ProductMatchError
			if !errors.As(err, &merr) {
				t.Fatalf("error = %v, want *ProductMatchError", err)
			}
			if merr.Item != tt.item.Name {
				t.Errorf("Item = %q", merr.Item)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if result.Match != nil || result.Error == "" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestMatcher_Concurrency(t *testing.T) {
	items := make([]recipe.ShoppingListItem, 6)
	results := map[string][]retail.Product{}
	for i := range items {
		name := string(rune('a'+i)) + "rice"
		items[i] = recipe.ShoppingListItem{Name: name}
		results[name] = []retail.Product{{ItemID: name, Name: name}}
	}
	s := &fakeSearcher{results: results, delay: 20 * time.Millisecond}

	got, err := New(s, Config{RateInterval: -1, Concurrency: 3}).Match(context.Background(), items)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if peak := s.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
	for i, r := range got {
		if r.Match == nil || r.Match.ItemID != items[i].Name {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestMatcher_RatePacing(t *testing.T) {
	s := &fakeSearcher{results: map[string][]retail.Product{}}
	m := New(s, Config{RateInterval: 40 * time.Millisecond})

	start := time.Now()
	if _, err := m.Match(context.Background(), shoppingItems); err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	// Burst of one: the second and third searches each wait an interval.
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("elapsed = %v, want requests paced", elapsed)
	}
	if len(s.Queries()) != 3 {
		t.Errorf("queries = %v", s.Queries())
	}
}

func TestMatcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSearcher{}
	results, err := New(s, unpaced()).Match(ctx, shoppingItems)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(results) != len(shoppingItems) {
		t.Errorf("results = %d", len(results))
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		item, category, product string
		want                    float64
	}{
		{"garlic", "produce", "Fresh Garlic Bulbs", 1},
		{"garlic", "produce", "Garlic Seeds for Planting", 0},
		{"tomatoes", "produce", "Roma Tomato, each", 1},
		{"sour cream", "dairy", "Daisy Sour Cream, 16 oz", 1},
		{"sour cream", "dairy", "Sour Cream & Onion Chips", 0},
		{"chicken thighs", "meat", "Boneless Chicken Breast", 0.5},
		{"chicken thighs", "meat", "Chicken Jerky Dog Treats", 0},
		{"catfish fillets", "seafood", "Catfish Fillets, 2 lb", 1},
		{"brown rice", "pantry", "Paper Towels", 0},
	}
	for _, tt := range tests {
		if got := Confidence(tt.item, tt.category, tt.product); got != tt.want {
			t.Errorf("Confidence(%q, %q, %q) = %v, want %v", tt.item, tt.category, tt.product, got, tt.want)
		}
	}
}

func TestBest_ThresholdAndTies(t *testing.T) {
	products := []retail.Product{
		{ItemID: "a", Name: "Brown Rice Cakes"},
		{ItemID: "b", Name: "Long Grain Brown Rice"},
		{ItemID: "c", Name: "White Rice"},
	}
	best := Best(products, "brown rice", "pantry", 0.3)
	if best == nil || best.ItemID != "a" {
		t.Errorf("Best() = %+v, want first full match", best)
	}
	if got := Best(products[2:], "brown rice", "pantry", 0.6); got != nil {
		t.Errorf("Best() = %+v, want nil below threshold", got)
	}
}
