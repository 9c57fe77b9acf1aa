package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/recipescale/pkg/llm/llmtest"
	"github.com/jmylchreest/recipescale/pkg/recipe"
)

const validExtraction = `{
  "recipe_name": "Garlic Butter Pasta",
  "servings": 4,
  "meal_type": "dinner",
  "portion_size": "1 bowl",
  "calories_per_serving": 520,
  "ingredients": [
    {"name": "spaghetti", "quantity": 1, "unit": "lb", "category": "Pantry"},
    {"name": "butter", "quantity": 4, "unit": "tbsp", "category": "dairy"},
    {"name": "garlic cloves", "quantity": 6, "unit": "", "category": "produce", "notes": "minced"}
  ],
  "instructions": ["Boil pasta", "Melt butter with garlic", "Toss"]
}`

func TestExtractor_Extract(t *testing.T) {
	fake := llmtest.New("```json\n" + validExtraction + "\n```")
	r, usage, err := NewExtractor(fake, testConfig()).Extract(context.Background(), "https://example.com/recipe/test", "recipe page text")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if r.Name != "Garlic Butter Pasta" || r.Servings != 4 || r.MealType != "dinner" {
		t.Errorf("recipe header = %+v", r)
	}
	if len(r.Ingredients) < 1 {
		t.Fatal("valid recipe text must yield at least one ingredient")
	}
	if len(r.Ingredients) != 3 {
		t.Fatalf("ingredients = %d, want 3", len(r.Ingredients))
	}
	if got := r.Ingredients[0].Category; got != "pantry" {
		t.Errorf("category not normalized: %q", got)
	}
	if got := r.Ingredients[2]; got.Notes != "minced" || got.Quantity != 6 {
		t.Errorf("ingredient = %+v", got)
	}
	if r.SourceURL != "https://example.com/recipe/test" || r.Text != "recipe page text" {
		t.Errorf("source not recorded: %q %q", r.SourceURL, r.Text)
	}
	if usage.InputTokens != 100 || usage.OutputTokens != 50 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestExtractor_DefaultServings(t *testing.T) {
	fake := llmtest.New(`{"servings": 0, "ingredients": [{"name": "rice", "quantity": 2, "unit": "cups"}]}`)
	r, _, err := NewExtractor(fake, testConfig()).Extract(context.Background(), "", "text")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if r.Servings != recipe.DefaultServings {
		t.Errorf("Servings = %d, want %d", r.Servings, recipe.DefaultServings)
	}
}

func TestExtractor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reply  string
		wantIs error
	}{
		{"empty text", "   ", "", ErrEmptyText},
		{"no ingredients", "text", `{"servings": 2, "ingredients": []}`, ErrNoIngredients},
		{"malformed json", "text", `{"servings": 2, "ingredients": [`, nil},
		{"not json", "text", `I could not find a recipe on this page.`, nil},
		{"ingredient without name", "text", `{"servings": 2, "ingredients": [{"quantity": 1, "unit": "cup"}]}`, nil},
		{"negative quantity", "text", `{"servings": 2, "ingredients": [{"name": "salt", "quantity": -1, "unit": "tsp"}]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmtest.New(tt.reply)
			_, _, err := NewExtractor(fake, testConfig()).Extract(context.Background(), "", tt.text)

			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("error = %v, want *ExtractionError", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if tt.wantIs == ErrEmptyText && fake.Calls() != 0 {
				t.Error("empty text should not reach the model")
			}
		})
	}
}

func TestExtractor_TruncatesContent(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContentSize = 10
	fake := llmtest.New(validExtraction)

	if _, _, err := NewExtractor(fake, cfg).Extract(context.Background(), "", "0123456789ABCDEFGHIJ"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	prompt := fake.Requests()[0].Messages[1].Content
	if strings.Contains(prompt, "ABCDEFGHIJ") || !strings.Contains(prompt, "truncated") {
		t.Error("recipe text was not truncated to MaxContentSize")
	}
}
