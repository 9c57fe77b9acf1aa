package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/llm"
	"github.com/jmylchreest/recipescale/pkg/recipe"
	"github.com/jmylchreest/recipescale/pkg/schema"
)

type scaledIngredientReply struct {
	Name     string  `json:"name" description:"Ingredient name, unchanged" validate:"required"`
	Quantity float64 `json:"quantity" description:"Quantity for the new serving count" validate:"gte=0"`
	Unit     string  `json:"unit,omitempty" description:"Unit, unchanged"`
}

type scaleReply struct {
	ScaledIngredients []scaledIngredientReply `json:"scaled_ingredients" description:"Every ingredient, same order and names" validate:"required,dive"`
}

var scaleSchema = schema.MustSchema[scaleReply](
	schema.WithName("scaled_recipe"),
	schema.WithDescription("The recipe's ingredients recomputed for a new serving count."),
)

// Scaler recomputes ingredient quantities for a target serving count.
type Scaler struct {
	client client
}

// NewScaler creates a Scaler backed by p.
func NewScaler(p llm.Provider, cfg Config) *Scaler {
	return &Scaler{client: newClient(p, cfg)}
}

// Scale returns r's ingredients for target servings. The model's reply must
// keep the ingredient count, names and order; the quantities written are
// always recipe.ScaleQuantity of the originals, and model figures that
// disagree are only logged. A factor of 1 returns the ingredients unchanged
// without a model call. All failures are *ScalingError.
func (s *Scaler) Scale(ctx context.Context, r *recipe.Recipe, target int) ([]recipe.Ingredient, recipe.TokenUsage, error) {
	if r == nil || len(r.Ingredients) == 0 {
		return nil, recipe.TokenUsage{}, &ScalingError{Err: ErrNoIngredients}
	}

	factor, err := recipe.ScaleFactor(r.Servings, target)
	if err != nil {
		return nil, recipe.TokenUsage{}, &ScalingError{Err: err}
	}

	scaled := recipe.ScaleIngredients(r.Ingredients, factor)
	if factor == 1 {
		logger.Debug("scale factor is 1, skipping model call")
		return scaled, recipe.TokenUsage{}, nil
	}

	listing, err := json.MarshalIndent(r.Ingredients, "", "  ")
	if err != nil {
		return nil, recipe.TokenUsage{}, &ScalingError{Err: err}
	}
	prompt := fmt.Sprintf(scalePrompt, r.Servings, target, recipe.FormatQuantity(factor), listing)

	var reply scaleReply
	usage, raw, err := s.client.complete(ctx, "scale", scaleSchema, prompt, &reply)
	if err != nil {
		return nil, usage, &ScalingError{Err: fmt.Errorf("%w (response: %s)", err, truncateForError(raw))}
	}

	if err := checkIdentity(r.Ingredients, reply.ScaledIngredients); err != nil {
		return nil, usage, &ScalingError{Err: err}
	}

	for i, got := range reply.ScaledIngredients {
		want := scaled[i]
		if math.Abs(got.Quantity-want.Quantity) > recipe.Tolerance(want.Unit) {
			logger.Warn("model scaled quantity disagrees, using computed value",
				"ingredient", want.Name,
				"model", got.Quantity,
				"computed", want.Quantity,
				"unit", want.Unit)
		}
	}

	logger.Info("recipe scaled",
		"from", r.Servings,
		"to", target,
		"factor", factor,
		"ingredients", len(scaled))

	return scaled, usage, nil
}

// checkIdentity verifies the reply lists the same ingredients in the same order.
func checkIdentity(original []recipe.Ingredient, reply []scaledIngredientReply) error {
	if len(reply) != len(original) {
		return fmt.Errorf("ingredient count changed: got %d, want %d", len(reply), len(original))
	}
	var mismatched []string
	for i := range original {
		if recipe.NormalizeName(reply[i].Name) != recipe.NormalizeName(original[i].Name) {
			mismatched = append(mismatched, fmt.Sprintf("#%d %q != %q", i+1, reply[i].Name, original[i].Name))
		}
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("ingredient identity changed: %s", strings.Join(mismatched, ", "))
	}
	return nil
}
