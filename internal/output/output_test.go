package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/recipescale/pkg/recipe"
)

func testBundle() *recipe.ResultBundle {
	return &recipe.ResultBundle{
		RecipeURL:        "https://example.com/recipe/test",
		RecipeName:       "Garlic Butter Pasta",
		RecipeText:       "Garlic Butter Pasta\nServes 4\n1 lb spaghetti",
		OriginalServings: 4,
		TargetServings:   7,
		ScaleFactor:      1.75,
		ScaledIngredients: []recipe.Ingredient{
			{Name: "spaghetti", Quantity: 1.75, Unit: "lb", Category: "pantry"},
			{Name: "garlic cloves", Quantity: 11, Unit: "", Category: "produce", Notes: "minced"},
		},
		ShoppingList: []recipe.ShoppingListItem{
			{Name: "Spaghetti", BulkQuantity: 2, Unit: "lb", EstimatedPrice: 3.5, Ingredients: []string{"spaghetti"}},
			{Name: "Garlic", BulkQuantity: 2, Unit: "head", EstimatedPrice: 1, StorageTip: "Cool and dry", Ingredients: []string{"garlic cloves"}},
		},
		StorageTips:   "butter: freeze\ngarlic: cool and dry",
		EstimatedCost: 4.5,
		ProductMatches: []recipe.ItemMatch{
			{Item: "Spaghetti", Query: "Spaghetti", Match: &recipe.ProductMatch{ItemID: "4", Name: "Barilla Spaghetti", Price: 1.52, Confidence: 1}},
			{Item: "Garlic", Query: "fresh Garlic", Error: `match "Garlic" (query "fresh Garlic"): no products found`},
		},
		Metadata: recipe.Metadata{
			RunID:       "4f9c2a1e-0000-4000-8000-000000000000",
			GeneratedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Usage:       recipe.TokenUsage{InputTokens: 1200, OutputTokens: 640},
		},
	}
}

func assertSameBundle(t *testing.T, got, want *recipe.ResultBundle) {
	t.Helper()
	if !got.Metadata.GeneratedAt.Equal(want.Metadata.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", got.Metadata.GeneratedAt, want.Metadata.GeneratedAt)
	}
	g, w := *got, *want
	g.Metadata.GeneratedAt, w.Metadata.GeneratedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("bundle mismatch\n got: %+v\nwant: %+v", g, w)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"jsonl", FormatJSONL, false},
		{"chat", FormatChat, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("unsupported"))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("NewWriter() error = %v", err)
	}
}

func TestJSONWriter_Indent(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(map[string]string{"name": "a&b"}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\n  \"name\": \"a&b\"\n}\n" {
		t.Errorf("output = %q", got)
	}
}

func TestJSONLWriter_OneLinePerValue(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSONL)
	for _, v := range []int{1, 2, 3} {
		if err := w.Write(map[string]int{"n": v}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	var got map[string]int
	if err := json.Unmarshal([]byte(lines[2]), &got); err != nil || got["n"] != 3 {
		t.Errorf("line 3 = %q", lines[2])
	}
}

func TestYAMLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatYAML)
	if err := w.Write(testBundle()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"recipe_url: https://example.com/recipe/test", "scale_factor: 1.75", "_metadata:"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML missing %q:\n%s", want, out)
		}
	}
}

func TestWriteBundle_RoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name    string
		file    string
		format  Format
		matches func(*recipe.ResultBundle)
	}{
		{"json", "shopping_list.json", FormatJSON, nil},
		{"yaml", "shopping_list.yaml", FormatYAML, nil},
		{"json without search", "shopping_list.json", FormatJSON, func(b *recipe.ResultBundle) { b.ProductMatches = nil }},
		{"yaml without search", "shopping_list.yaml", FormatYAML, func(b *recipe.ResultBundle) { b.ProductMatches = nil }},
		{"yaml empty search", "shopping_list.yml", FormatYAML, func(b *recipe.ResultBundle) { b.ProductMatches = []recipe.ItemMatch{} }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			want := testBundle()
			if tt.matches != nil {
				tt.matches(want)
			}

			if err := WriteBundle(path, want, tt.format); err != nil {
				t.Fatalf("WriteBundle() error = %v", err)
			}
			got, err := ReadBundle(path)
			if err != nil {
				t.Fatalf("ReadBundle() error = %v", err)
			}
			assertSameBundle(t, got, want)
		})
	}
}

func TestWriteBundle_JSONDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	b := testBundle()
	b.ProductMatches = nil

	if err := WriteBundle(path, b, FormatJSON); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"recipe_url", "recipe_text", "original_servings", "target_servings",
		"scale_factor", "scaled_ingredients", "shopping_list", "storage_tips", "estimated_cost", "_metadata"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing %q", key)
		}
	}
	if v, ok := doc["product_matches"]; !ok || v != nil {
		t.Errorf("product_matches = %v, want null", v)
	}
	if !strings.HasPrefix(string(data), "{\n  \"recipe_url\"") {
		t.Errorf("expected 2-space indented JSON, got %.40q", data)
	}
}

func TestWriteBundle_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(path, []byte("stale contents that are longer than nothing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteBundle(path, testBundle(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBundle(path); err != nil {
		t.Errorf("ReadBundle() after overwrite error = %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the output file", len(entries))
	}
}

func TestWriteBundle_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		path   string
		format Format
	}{
		{"missing directory", filepath.Join(dir, "nope", "out.json"), FormatJSON},
		{"unsupported format", filepath.Join(dir, "out.xml"), Format("xml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteBundle(tt.path, testBundle(), tt.format)
			var werr *WriteError
			if !errors.As(err, &werr) {
				t.Fatalf("error = %v, want *WriteError", err)
			}
			if werr.Path != tt.path {
				t.Errorf("Path = %q", werr.Path)
			}
			if _, statErr := os.Stat(tt.path); !os.IsNotExist(statErr) {
				t.Error("no file should exist after a failed write")
			}
		})
	}
}

func TestReadBundle_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadBundle(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := ReadBundle(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestRenderChat(t *testing.T) {
	out := RenderChat(testBundle())
	for _, want := range []string{
		"**Garlic Butter Pasta**",
		"Scaled from 4 to 7 servings (x1.75)",
		"• Spaghetti: 2 lb ~$3.50",
		"**Estimated Total:** $4.50",
		"Products (1/2 matched)",
		"• Garlic: no match",
		"• butter: freeze",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}
}

func TestChatWriter_RejectsOtherValues(t *testing.T) {
	w, _ := NewWriter(&bytes.Buffer{}, FormatChat)
	if err := w.Write(map[string]string{}); err == nil {
		t.Error("expected error for non-bundle value")
	}
}

func TestYAMLDecodesStorageTips(t *testing.T) {
	data, err := Marshal(testBundle(), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	var b recipe.ResultBundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		t.Fatal(err)
	}
	if b.StorageTips != testBundle().StorageTips {
		t.Errorf("StorageTips = %q", b.StorageTips)
	}
}
