package matcher

import (
	"regexp"
	"strings"

	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/retail"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// invalidKeywords disqualify products that share words with an ingredient
// but are not food for that category (garlic seeds, onion snacks, dog treats).
var invalidKeywords = map[string][]string{
	"produce": {"seeds", "plant", "garden", "growing"},
	"dairy":   {"chips", "snacks", "artificial"},
	"meat":    {"pet", "dog", "cat", "toy"},
}

// stopWords carry no identity: sizes, packaging and filler.
var stopWords = func() map[string]bool {
	words := []string{
		"a", "an", "the", "and", "or", "of", "in", "with", "for", "to",
		"oz", "fl", "lb", "lbs", "g", "kg", "ml", "l", "gallon", "quart", "pint",
		"cup", "cups", "tbsp", "tsp", "ct", "count", "each", "pack", "pk",
		"bag", "box", "jar", "can", "bottle", "bunch", "head", "whole", "fresh",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

// tokens lowercases s, splits it on non-alphanumerics, drops stop words and
// reduces plurals.
func tokens(s string) []string {
	var out []string
	for _, w := range nonWord.Split(strings.ToLower(s), -1) {
		if w == "" || stopWords[w] {
			continue
		}
		out = append(out, stem(w))
	}
	return out
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && strings.HasSuffix(w, "oes"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

// IsValidProduct reports whether productName is free of the keywords that
// rule a product out for category.
func IsValidProduct(productName, category string) bool {
	bad := invalidKeywords[strings.ToLower(strings.TrimSpace(category))]
	if len(bad) == 0 {
		return true
	}
	have := make(map[string]bool)
	for _, t := range tokens(productName) {
		have[t] = true
	}
	for _, kw := range bad {
		if have[stem(kw)] {
			return false
		}
	}
	return true
}

// Confidence scores how well productName matches itemName in [0, 1]: the
// share of the item's words found in the product name. Disqualified products
// score 0.
func Confidence(itemName, category, productName string) float64 {
	if !IsValidProduct(productName, category) {
		return 0
	}
	want := tokens(itemName)
	if len(want) == 0 {
		return 0
	}
	have := make(map[string]bool)
	for _, t := range tokens(productName) {
		have[t] = true
	}
	matched := 0
	for _, t := range want {
		if have[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

// Best returns the highest scoring product at or above minConfidence.
// Ties keep the retailer's ranking.
func Best(products []retail.Product, itemName, category string, minConfidence float64) *recipe.ProductMatch {
	var best *recipe.ProductMatch
	for _, p := range products {
		c := Confidence(itemName, category, p.Name)
		if c < minConfidence || c == 0 {
			continue
		}
		if best == nil || c > best.Confidence {
			best = &recipe.ProductMatch{
				ItemID:     p.ItemID,
				Name:       p.Name,
				Price:      p.Price,
				URL:        p.URL,
				Confidence: c,
			}
		}
	}
	return best
}
