package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/llm"
	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/schema"
)

type ingredientReply struct {
	Name     string  `json:"name" description:"Grocery name of the ingredient" validate:"required"`
	Quantity float64 `json:"quantity" description:"Numeric amount" validate:"gte=0"`
	Unit     string  `json:"unit" description:"Retail unit, empty for plain counts"`
	Category string  `json:"category,omitempty" description:"produce, dairy, meat, seafood, pantry, spices, frozen or bakery"`
	Notes    string  `json:"notes,omitempty" description:"Preparation or variety details"`
}

type extractionReply struct {
	RecipeName         string            `json:"recipe_name,omitempty" description:"Title of the recipe"`
	Servings           int               `json:"servings" description:"Servings the recipe makes, 0 if not stated" validate:"gte=0"`
	MealType           string            `json:"meal_type,omitempty" description:"breakfast, lunch, dinner, snack or dessert"`
	PortionSize        string            `json:"portion_size,omitempty" description:"Size of one portion"`
	CaloriesPerServing float64           `json:"calories_per_serving,omitempty" description:"Calories per serving if known" validate:"gte=0"`
	Ingredients        []ingredientReply `json:"ingredients" description:"Every ingredient in recipe order" validate:"required,min=1,dive"`
	Instructions       []string          `json:"instructions,omitempty" description:"Method steps"`
}

var extractionSchema = schema.MustSchema[extractionReply](
	schema.WithName("recipe"),
	schema.WithDescription("A recipe's serving information and ingredient list."),
)

// Extractor turns raw recipe text into a structured recipe.
type Extractor struct {
	client client
}

// NewExtractor creates an Extractor backed by p.
func NewExtractor(p llm.Provider, cfg Config) *Extractor {
	return &Extractor{client: newClient(p, cfg)}
}

// Extract sends text to the model and returns the recipe it describes.
// Servings default to recipe.DefaultServings when the page does not state
// them. All failures are *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, sourceURL, text string) (*recipe.Recipe, recipe.TokenUsage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, recipe.TokenUsage{}, &ExtractionError{Err: ErrEmptyText}
	}

	prompt := extractPrompt + TruncateContent(text, e.client.cfg.MaxContentSize)

	var reply extractionReply
	usage, raw, err := e.client.complete(ctx, "extract", extractionSchema, prompt, &reply)
	if err != nil {
		// A reply that parsed but listed nothing is a recipe without ingredients.
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) && len(reply.Ingredients) == 0 {
			err = fmt.Errorf("%w: %v", ErrNoIngredients, err)
		}
		return nil, usage, &ExtractionError{Err: err, Response: truncateForError(raw)}
	}

	r := &recipe.Recipe{
		SourceURL:          sourceURL,
		Text:               text,
		Name:               strings.TrimSpace(reply.RecipeName),
		Servings:           reply.Servings,
		MealType:           strings.TrimSpace(reply.MealType),
		PortionSize:        strings.TrimSpace(reply.PortionSize),
		CaloriesPerServing: reply.CaloriesPerServing,
		Instructions:       reply.Instructions,
		Ingredients:        make([]recipe.Ingredient, 0, len(reply.Ingredients)),
	}
	if r.Servings <= 0 {
		logger.Warn("recipe does not state servings, assuming default", "default", recipe.DefaultServings)
		r.Servings = recipe.DefaultServings
	}

	for _, ing := range reply.Ingredients {
		r.Ingredients = append(r.Ingredients, recipe.Ingredient{
			Name:     strings.TrimSpace(ing.Name),
			Quantity: ing.Quantity,
			Unit:     strings.TrimSpace(ing.Unit),
			Category: strings.ToLower(strings.TrimSpace(ing.Category)),
			Notes:    strings.TrimSpace(ing.Notes),
		})
	}

	logger.Info("recipe extracted",
		"name", r.Name,
		"servings", r.Servings,
		"ingredients", len(r.Ingredients))

	return r, usage, nil
}
