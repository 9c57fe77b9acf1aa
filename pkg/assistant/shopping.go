package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/llm"
	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/schema"
)

type shoppingItemReply struct {
	Name           string   `json:"name" description:"Product to buy" validate:"required"`
	BulkQuantity   float64  `json:"bulk_quantity" description:"Amount to buy, rounded to store sizes" validate:"gte=0"`
	Unit           string   `json:"unit" description:"Unit of bulk_quantity"`
	Category       string   `json:"category,omitempty" description:"Grocery category"`
	EstimatedPrice float64  `json:"estimated_price" description:"Estimated price in USD" validate:"gte=0"`
	StorageTip     string   `json:"storage_tip,omitempty" description:"How to store the bulk amount"`
	Ingredients    []string `json:"ingredients" description:"Scaled ingredient names this item covers" validate:"required,min=1,dive,required"`
}

type shoppingReply struct {
	Items         []shoppingItemReply `json:"items" description:"Items to buy" validate:"required,min=1,dive"`
	StorageTips   storageTips         `json:"storage_tips,omitempty" description:"Overall storage recommendations"`
	EstimatedCost *float64            `json:"estimated_cost,omitempty" description:"Estimated total cost in USD" validate:"omitempty,gte=0"`
}

// storageTips accepts either a string or an ingredient -> tip object.
type storageTips string

func (t *storageTips) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = storageTips(s)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("storage_tips must be a string or object: %w", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + m[k]
	}
	*t = storageTips(strings.Join(lines, "\n"))
	return nil
}

var shoppingSchema = schema.MustSchema[shoppingReply](
	schema.WithName("shopping_list"),
	schema.WithDescription("A bulk-buying shopping list with storage advice and cost estimate."),
)

// ErrTooManyItems is returned when a list has more items than ingredients.
var ErrTooManyItems = errors.New("shopping list has more items than ingredients")

// ShoppingListBuilder turns scaled ingredients into a bulk shopping list.
type ShoppingListBuilder struct {
	client client
}

// NewShoppingListBuilder creates a ShoppingListBuilder backed by p.
func NewShoppingListBuilder(p llm.Provider, cfg Config) *ShoppingListBuilder {
	return &ShoppingListBuilder{client: newClient(p, cfg)}
}

// Build asks the model for a shopping list covering scaled. The list must not
// have more items than ingredients, and every item must cover at least one
// ingredient from scaled. A missing total cost is the sum of item prices.
// All failures are *ShoppingListError.
func (b *ShoppingListBuilder) Build(ctx context.Context, scaled []recipe.Ingredient, servings int) (*recipe.ShoppingList, recipe.TokenUsage, error) {
	if len(scaled) == 0 {
		return nil, recipe.TokenUsage{}, &ShoppingListError{Err: ErrNoIngredients}
	}

	listing, err := json.MarshalIndent(scaled, "", "  ")
	if err != nil {
		return nil, recipe.TokenUsage{}, &ShoppingListError{Err: err}
	}
	prompt := fmt.Sprintf(shoppingPrompt, servings, listing)

	var reply shoppingReply
	usage, raw, err := b.client.complete(ctx, "shopping_list", shoppingSchema, prompt, &reply)
	if err != nil {
		return nil, usage, &ShoppingListError{Err: err, Response: truncateForError(raw)}
	}

	list, err := toShoppingList(reply, scaled)
	if err != nil {
		return nil, usage, &ShoppingListError{Err: err}
	}

	logger.Info("shopping list built",
		"items", len(list.Items),
		"estimated_cost", list.EstimatedCost)

	return list, usage, nil
}

func toShoppingList(reply shoppingReply, scaled []recipe.Ingredient) (*recipe.ShoppingList, error) {
	if len(reply.Items) > len(scaled) {
		return nil, fmt.Errorf("%w: %d items for %d ingredients", ErrTooManyItems, len(reply.Items), len(scaled))
	}

	known := make(map[string]string, len(scaled))
	for _, ing := range scaled {
		known[recipe.NormalizeName(ing.Name)] = ing.Name
	}

	list := &recipe.ShoppingList{
		Items:       make([]recipe.ShoppingListItem, 0, len(reply.Items)),
		StorageTips: strings.TrimSpace(string(reply.StorageTips)),
	}

	var total float64
	for _, it := range reply.Items {
		covered := make([]string, 0, len(it.Ingredients))
		for _, name := range it.Ingredients {
			canonical, ok := known[recipe.NormalizeName(name)]
			if !ok {
				return nil, fmt.Errorf("item %q covers unknown ingredient %q", it.Name, name)
			}
			covered = append(covered, canonical)
		}

		list.Items = append(list.Items, recipe.ShoppingListItem{
			Name:           strings.TrimSpace(it.Name),
			BulkQuantity:   it.BulkQuantity,
			Unit:           strings.TrimSpace(it.Unit),
			Category:       strings.ToLower(strings.TrimSpace(it.Category)),
			EstimatedPrice: it.EstimatedPrice,
			StorageTip:     strings.TrimSpace(it.StorageTip),
			Ingredients:    covered,
		})
		total += it.EstimatedPrice
	}

	if reply.EstimatedCost != nil {
		list.EstimatedCost = *reply.EstimatedCost
	} else {
		list.EstimatedCost = total
	}

	return list, nil
}
