package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/recipescale/pkg/llm/llmtest"
	"github.com/jmylchreest/recipescale/pkg/recipe"
)

func pastaRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		Name:     "Garlic Butter Pasta",
		Servings: 4,
		Ingredients: []recipe.Ingredient{
			{Name: "spaghetti", Quantity: 1, Unit: "lb", Category: "pantry"},
			{Name: "butter", Quantity: 4, Unit: "tbsp", Category: "dairy"},
			{Name: "garlic cloves", Quantity: 6, Unit: "", Category: "produce", Notes: "minced"},
		},
	}
}

func TestScaler_Scale(t *testing.T) {
	fake := llmtest.New(`{"scaled_ingredients": [
		{"name": "spaghetti", "quantity": 1.75, "unit": "lb"},
		{"name": "Butter", "quantity": 7, "unit": "tbsp"},
		{"name": "garlic cloves", "quantity": 11, "unit": ""}
	]}`)

	scaled, usage, err := NewScaler(fake, testConfig()).Scale(context.Background(), pastaRecipe(), 7)
	if err != nil {
		t.Fatalf("Scale() error = %v", err)
	}

	want := []float64{1.75, 7, 11}
	for i, ing := range scaled {
		if ing.Quantity != want[i] {
			t.Errorf("%s quantity = %v, want %v", ing.Name, ing.Quantity, want[i])
		}
	}
	if scaled[2].Notes != "minced" || scaled[0].Unit != "lb" {
		t.Errorf("scaling changed ingredient identity: %+v", scaled)
	}
	if usage.InputTokens != 100 {
		t.Errorf("usage = %+v", usage)
	}
	if got := fake.Requests()[0].SchemaName; got != "scaled_recipe" {
		t.Errorf("SchemaName = %q", got)
	}
	if !strings.Contains(fake.Requests()[0].Messages[1].Content, "factor 1.75") {
		t.Error("prompt should state the scale factor")
	}
}

func TestScaler_ComputedQuantityWins(t *testing.T) {
	// The model doubles instead of scaling by 1.75; computed values are kept.
	fake := llmtest.New(`{"scaled_ingredients": [
		{"name": "spaghetti", "quantity": 2, "unit": "lb"},
		{"name": "butter", "quantity": 8, "unit": "tbsp"},
		{"name": "garlic cloves", "quantity": 12, "unit": ""}
	]}`)

	scaled, _, err := NewScaler(fake, testConfig()).Scale(context.Background(), pastaRecipe(), 7)
	if err != nil {
		t.Fatalf("Scale() error = %v", err)
	}
	if scaled[0].Quantity != 1.75 || scaled[1].Quantity != 7 {
		t.Errorf("scaled = %+v, want computed quantities", scaled)
	}
}

func TestScaler_SameServingsSkipsModel(t *testing.T) {
	fake := llmtest.New()
	r := pastaRecipe()

	scaled, usage, err := NewScaler(fake, testConfig()).Scale(context.Background(), r, 4)
	if err != nil {
		t.Fatalf("Scale() error = %v", err)
	}
	if fake.Calls() != 0 {
		t.Errorf("calls = %d, want 0", fake.Calls())
	}
	if usage != (recipe.TokenUsage{}) {
		t.Errorf("usage = %+v, want zero", usage)
	}
	for i := range scaled {
		if scaled[i] != r.Ingredients[i] {
			t.Errorf("ingredient %d changed: %+v", i, scaled[i])
		}
	}
}

func TestScaler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		recipe *recipe.Recipe
		target int
		reply  string
	}{
		{"zero target", pastaRecipe(), 0, ""},
		{"negative target", pastaRecipe(), -2, ""},
		{"no ingredients", &recipe.Recipe{Servings: 4}, 8, ""},
		{"dropped ingredient", pastaRecipe(), 8, `{"scaled_ingredients": [
			{"name": "spaghetti", "quantity": 2, "unit": "lb"},
			{"name": "butter", "quantity": 8, "unit": "tbsp"}]}`},
		{"renamed ingredient", pastaRecipe(), 8, `{"scaled_ingredients": [
			{"name": "spaghetti", "quantity": 2, "unit": "lb"},
			{"name": "margarine", "quantity": 8, "unit": "tbsp"},
			{"name": "garlic cloves", "quantity": 12, "unit": ""}]}`},
		{"reordered", pastaRecipe(), 8, `{"scaled_ingredients": [
			{"name": "butter", "quantity": 8, "unit": "tbsp"},
			{"name": "spaghetti", "quantity": 2, "unit": "lb"},
			{"name": "garlic cloves", "quantity": 12, "unit": ""}]}`},
		{"malformed", pastaRecipe(), 8, `{"scaled_ingredients": "lots"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmtest.New(tt.reply)
			_, _, err := NewScaler(fake, testConfig()).Scale(context.Background(), tt.recipe, tt.target)
			var se *ScalingError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *ScalingError", err)
			}
		})
	}
}
