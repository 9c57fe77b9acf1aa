// Package recipe defines the data carried through the recipescale pipeline:
// the extracted recipe, its scaled ingredients, the shopping list built from
// them, retailer product matches, and the final result bundle.
package recipe

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultServings is assumed when a recipe does not state how many it serves.
const DefaultServings = 4

// Ingredient is a single recipe ingredient.
type Ingredient struct {
	Name     string  `json:"name" yaml:"name"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Unit     string  `json:"unit" yaml:"unit"`
	Category string  `json:"category,omitempty" yaml:"category,omitempty"`
	Notes    string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Recipe is the structured form of a fetched recipe page.
type Recipe struct {
	SourceURL          string       `json:"source_url" yaml:"source_url"`
	Text               string       `json:"-" yaml:"-"`
	Name               string       `json:"recipe_name,omitempty" yaml:"recipe_name,omitempty"`
	Servings           int          `json:"servings" yaml:"servings"`
	MealType           string       `json:"meal_type,omitempty" yaml:"meal_type,omitempty"`
	PortionSize        string       `json:"portion_size,omitempty" yaml:"portion_size,omitempty"`
	CaloriesPerServing float64      `json:"calories_per_serving,omitempty" yaml:"calories_per_serving,omitempty"`
	Ingredients        []Ingredient `json:"ingredients" yaml:"ingredients"`
	Instructions       []string     `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// ShoppingListItem is one line of the bulk-buying shopping list.
type ShoppingListItem struct {
	Name           string   `json:"name" yaml:"name"`
	BulkQuantity   float64  `json:"bulk_quantity" yaml:"bulk_quantity"`
	Unit           string   `json:"unit" yaml:"unit"`
	Category       string   `json:"category,omitempty" yaml:"category,omitempty"`
	EstimatedPrice float64  `json:"estimated_price" yaml:"estimated_price"`
	StorageTip     string   `json:"storage_tip,omitempty" yaml:"storage_tip,omitempty"`
	Ingredients    []string `json:"ingredients" yaml:"ingredients"`
}

// ShoppingList is the output of the shopping list stage.
type ShoppingList struct {
	Items         []ShoppingListItem `json:"items" yaml:"items"`
	StorageTips   string             `json:"storage_tips" yaml:"storage_tips"`
	EstimatedCost float64            `json:"estimated_cost" yaml:"estimated_cost"`
}

// ProductMatch is a retailer catalog item chosen for a shopping list entry.
type ProductMatch struct {
	ItemID     string  `json:"item_id" yaml:"item_id"`
	Name       string  `json:"name" yaml:"name"`
	Price      float64 `json:"price" yaml:"price"`
	URL        string  `json:"url,omitempty" yaml:"url,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ItemMatch records the product search outcome for one shopping list item.
// Match is nil when nothing acceptable was found; Error then says why.
type ItemMatch struct {
	Item  string        `json:"item" yaml:"item"`
	Query string        `json:"query" yaml:"query"`
	Match *ProductMatch `json:"match" yaml:"match"`
	Error string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// TokenUsage totals LLM token consumption across stages.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Metadata describes the run that produced a bundle.
type Metadata struct {
	RunID       string     `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time  `json:"generated_at" yaml:"generated_at"`
	Provider    string     `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string     `json:"model,omitempty" yaml:"model,omitempty"`
	Retailer    string     `json:"retailer,omitempty" yaml:"retailer,omitempty"`
	Usage       TokenUsage `json:"usage" yaml:"usage"`
}

// ResultBundle is the document written at the end of a run.
type ResultBundle struct {
	RecipeURL         string             `json:"recipe_url" yaml:"recipe_url"`
	RecipeName        string             `json:"recipe_name,omitempty" yaml:"recipe_name,omitempty"`
	RecipeText        string             `json:"recipe_text" yaml:"recipe_text"`
	OriginalServings  int                `json:"original_servings" yaml:"original_servings"`
	TargetServings    int                `json:"target_servings" yaml:"target_servings"`
	ScaleFactor       float64            `json:"scale_factor" yaml:"scale_factor"`
	ScaledIngredients []Ingredient       `json:"scaled_ingredients" yaml:"scaled_ingredients"`
	ShoppingList      []ShoppingListItem `json:"shopping_list" yaml:"shopping_list"`
	StorageTips       string             `json:"storage_tips" yaml:"storage_tips"`
	EstimatedCost     float64            `json:"estimated_cost" yaml:"estimated_cost"`
	ProductMatches    []ItemMatch        `json:"product_matches" yaml:"product_matches"`
	Metadata          Metadata           `json:"_metadata" yaml:"_metadata"`
}

// MarshalYAML writes a nil ProductMatches as null rather than an empty
// sequence, so a bundle from a run without product search reads back with
// nil matches.
func (b *ResultBundle) MarshalYAML() (any, error) {
	type plain ResultBundle
	var n yaml.Node
	if err := n.Encode((*plain)(b)); err != nil {
		return nil, err
	}
	if b.ProductMatches != nil {
		return &n, nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "product_matches" {
			n.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
	}
	return &n, nil
}

// MatchedCount returns how many shopping list items received a product.
func (b *ResultBundle) MatchedCount() int {
	n := 0
	for _, m := range b.ProductMatches {
		if m.Match != nil {
			n++
		}
	}
	return n
}

// NormalizeName folds an ingredient name for identity comparisons.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
