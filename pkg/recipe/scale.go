package recipe

import (
	"fmt"
	"math"
	"strings"
)

// QuarterStep is the granularity fractional quantities are rounded to.
const QuarterStep = 0.25

// FineStep is the granularity used below one QuarterStep, so small amounts
// like a pinch of saffron stay within Tolerance when scaled down.
const FineStep = 0.0625

// countUnits are units that are bought as whole items. Quantities in these
// units round up to the next integer.
var countUnits = func() map[string]bool {
	units := []string{
		"", "whole", "count", "ct", "each", "ea", "piece", "pieces",
		"clove", "cloves", "head", "heads", "bunch", "bunches",
		"can", "cans", "package", "packages", "pkg", "egg", "eggs",
		"large", "medium", "small",
	}
	m := make(map[string]bool, len(units))
	for _, u := range units {
		m[u] = true
	}
	return m
}()

// IsCountUnit reports whether unit describes discrete items.
func IsCountUnit(unit string) bool {
	return countUnits[strings.ToLower(strings.TrimSpace(unit))]
}

// RoundQuantity applies the rounding policy: count units round up to a whole
// number, everything else rounds to the nearest quarter. Amounts under a
// quarter round to the nearest sixteenth instead. A positive quantity never
// rounds to zero.
func RoundQuantity(q float64, unit string) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}

	if IsCountUnit(unit) {
		// Guard against float noise like 3.0000000001 becoming 4.
		return math.Ceil(q - 1e-9)
	}

	if q < QuarterStep {
		return math.Max(math.Round(q/FineStep)*FineStep, FineStep)
	}
	return math.Round(q/QuarterStep) * QuarterStep
}

// ScaleFactor returns target/original, rejecting non-positive serving counts.
func ScaleFactor(original, target int) (float64, error) {
	if original <= 0 {
		return 0, fmt.Errorf("original servings must be positive, got %d", original)
	}
	if target <= 0 {
		return 0, fmt.Errorf("target servings must be positive, got %d", target)
	}
	return float64(target) / float64(original), nil
}

// ScaleQuantity multiplies q by factor and rounds the result for unit.
// A factor of exactly 1 returns q untouched.
func ScaleQuantity(q, factor float64, unit string) float64 {
	if factor == 1 {
		return q
	}
	return RoundQuantity(q*factor, unit)
}

// ScaleIngredients returns a new slice with every quantity scaled by factor.
// Names, units, categories and notes are preserved.
func ScaleIngredients(in []Ingredient, factor float64) []Ingredient {
	out := make([]Ingredient, len(in))
	for i, ing := range in {
		out[i] = ing
		out[i].Quantity = ScaleQuantity(ing.Quantity, factor, ing.Unit)
	}
	return out
}

// Tolerance is the largest difference ScaleQuantity can introduce for unit.
func Tolerance(unit string) float64 {
	if IsCountUnit(unit) {
		return 1
	}
	return QuarterStep / 2
}

// FormatQuantity renders q without trailing zeros ("1.5", "2", "0.0625").
func FormatQuantity(q float64) string {
	s := fmt.Sprintf("%.4f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
