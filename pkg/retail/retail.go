// Package retail searches a grocery retailer's catalog for products.
//
// Two searchers are provided: APIClient talks to a JSON search endpoint and
// BrowserSearcher scrapes the retailer's public search page through a
// fetcher.Fetcher.
package retail

import (
	"context"
	"errors"
	"strings"
)

// Product is one catalog entry returned by a search.
type Product struct {
	ItemID string  `json:"itemId"`
	Name   string  `json:"name"`
	Price  float64 `json:"salePrice"`
	URL    string  `json:"productUrl"`
}

// Searcher looks up products matching a free-text query.
type Searcher interface {
	// Search returns candidate products, best ranked first.
	// ErrNoResults is returned when the retailer has nothing for query.
	Search(ctx context.Context, query string) ([]Product, error)

	// Name identifies the retailer backend (e.g., "api", "browser").
	Name() string
}

// ErrNoResults is returned when a search yields no products.
var ErrNoResults = errors.New("no products found")

// Modes accepted by configuration.
const (
	ModeAPI     = "api"
	ModeBrowser = "browser"
)

// BuildQuery turns a shopping list item into a retailer search query.
// Fresh categories are prefixed so the retailer ranks produce and meat above
// seeds, snacks and similar lookalikes.
func BuildQuery(name, category string) string {
	name = strings.TrimSpace(name)
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "produce", "meat":
		return "fresh " + name
	case "dairy":
		return "dairy " + name
	case "spices":
		return name + " spice"
	default:
		return name
	}
}
