package cleaner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RecipeData is the subset of a schema.org Recipe useful for scaling.
type RecipeData struct {
	Name         string
	Yield        string
	Ingredients  []string
	Instructions []string
}

// jsonLDNode is one schema.org object. Fields vary in shape between sites,
// so the loosely typed ones are decoded later.
type jsonLDNode struct {
	Type         any               `json:"@type"`
	Graph        []json.RawMessage `json:"@graph"`
	Name         string            `json:"name"`
	Yield        any               `json:"recipeYield"`
	Ingredients  any               `json:"recipeIngredient"`
	Instructions any               `json:"recipeInstructions"`
}

// RecipeFromJSONLD returns the first schema.org Recipe embedded in html as
// JSON-LD, or nil if there is none.
func RecipeFromJSONLD(html string) *RecipeData {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var found *RecipeData
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = recipeFromRaw(json.RawMessage(strings.TrimSpace(s.Text())))
		return found == nil
	})
	return found
}

func recipeFromRaw(raw json.RawMessage) *RecipeData {
	// A block holds a single object, an array, or an @graph of objects.
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if r := recipeFromRaw(item); r != nil {
				return r
			}
		}
		return nil
	}

	var node jsonLDNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	if ingredients := ingredientLines(node.Ingredients); isRecipeType(node.Type) && len(ingredients) > 0 {
		return &RecipeData{
			Name:         strings.TrimSpace(node.Name),
			Yield:        yieldText(node.Yield),
			Ingredients:  ingredients,
			Instructions: instructionSteps(node.Instructions),
		}
	}
	for _, item := range node.Graph {
		if r := recipeFromRaw(item); r != nil {
			return r
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Recipe")
	case []any:
		for _, e := range v {
			if isRecipeType(e) {
				return true
			}
		}
	}
	return false
}

// yieldText accepts "4 servings", 4 or ["4", "4 servings"].
func yieldText(y any) string {
	switch v := y.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	case []any:
		// Sites often repeat the yield; the longest form is the most descriptive.
		best := ""
		for _, e := range v {
			if s := yieldText(e); len(s) > len(best) {
				best = s
			}
		}
		return best
	}
	return ""
}

// instructionSteps flattens a string, a list of strings, HowToStep objects
// or HowToSection objects into step texts.
func instructionSteps(in any) []string {
	var steps []string
	var walk func(any)
	walk = func(v any) {
		switch x := v.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				steps = append(steps, s)
			}
		case []any:
			for _, e := range x {
				walk(e)
			}
		case map[string]any:
			if items, ok := x["itemListElement"]; ok {
				walk(items)
				return
			}
			if text, ok := x["text"].(string); ok {
				walk(text)
			}
		}
	}
	walk(in)
	return steps
}

// ingredientLines accepts a list of strings or a single string. Blank and
// non-string entries are dropped.
func ingredientLines(in any) []string {
	var raw []any
	switch v := in.(type) {
	case string:
		raw = []any{v}
	case []any:
		raw = v
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, _ := e.(string)
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// String renders the data as the text block placed ahead of page content.
func (r *RecipeData) String() string {
	var sb strings.Builder
	sb.WriteString("## Structured recipe data\n")
	if r.Name != "" {
		fmt.Fprintf(&sb, "Name: %s\n", r.Name)
	}
	if r.Yield != "" {
		fmt.Fprintf(&sb, "Yield: %s\n", r.Yield)
	}
	sb.WriteString("Ingredients:\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&sb, "- %s\n", ing)
	}
	if len(r.Instructions) > 0 {
		sb.WriteString("Instructions:\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
	}
	return sb.String()
}

// StructuredCleaner prepends JSON-LD recipe data to the output of another
// cleaner. Content isolation usually drops script tags, and with them the
// most reliable ingredient list on the page.
type StructuredCleaner struct {
	inner Cleaner
}

// NewStructured wraps inner.
func NewStructured(inner Cleaner) *StructuredCleaner {
	return &StructuredCleaner{inner: inner}
}

// Clean runs the inner cleaner and prefixes any recipe data found in html.
func (c *StructuredCleaner) Clean(html string) (string, error) {
	out, err := c.inner.Clean(html)
	if err != nil {
		return "", err
	}
	data := RecipeFromJSONLD(html)
	if data == nil {
		return out, nil
	}
	return data.String() + "\n" + out, nil
}

// Name returns the wrapped cleaner's name with a jsonld prefix.
func (c *StructuredCleaner) Name() string {
	return "jsonld+" + c.inner.Name()
}
