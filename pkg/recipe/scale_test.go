package recipe

import (
	"math"
	"testing"
)

func TestRoundQuantity(t *testing.T) {
	tests := []struct {
		name string
		q    float64
		unit string
		want float64
	}{
		{"exact quarter", 1.75, "cup", 1.75},
		{"rounds down to quarter", 1.1, "cup", 1.0},
		{"rounds up to quarter", 1.2, "tbsp", 1.25},
		{"tiny positive keeps a sixteenth", 0.01, "tsp", 0.0625},
		{"below a quarter uses sixteenths", 0.1, "tsp", 0.125},
		{"just under a quarter", 0.24, "tsp", 0.25},
		{"zero stays zero", 0, "cup", 0},
		{"negative is zero", -2, "cup", 0},
		{"count unit rounds up", 5.25, "cloves", 6},
		{"count unit exact", 3, "whole", 3},
		{"count unit float noise", 3.0000000001, "whole", 3},
		{"empty unit counts items", 1.5, "", 2},
		{"unit case insensitive", 0.4, " Each ", 1},
		{"NaN is zero", math.NaN(), "cup", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundQuantity(tt.q, tt.unit); got != tt.want {
				t.Errorf("RoundQuantity(%v, %q) = %v, want %v", tt.q, tt.unit, got, tt.want)
			}
		})
	}
}

func TestScaleFactor(t *testing.T) {
	f, err := ScaleFactor(4, 7)
	if err != nil {
		t.Fatalf("ScaleFactor() error = %v", err)
	}
	if f != 1.75 {
		t.Errorf("ScaleFactor(4, 7) = %v, want 1.75", f)
	}

	for _, tc := range [][2]int{{0, 4}, {4, 0}, {-1, 2}, {2, -3}} {
		if _, err := ScaleFactor(tc[0], tc[1]); err == nil {
			t.Errorf("ScaleFactor(%d, %d) expected error", tc[0], tc[1])
		}
	}
}

func TestScaleIngredients_Proportional(t *testing.T) {
	in := []Ingredient{
		{Name: "flour", Quantity: 2, Unit: "cups"},
		{Name: "olive oil", Quantity: 1, Unit: "tbsp"},
		{Name: "salt", Quantity: 0.5, Unit: "tsp"},
		{Name: "garlic", Quantity: 3, Unit: "cloves"},
		{Name: "onion", Quantity: 1, Unit: "whole", Notes: "diced"},
		{Name: "butter", Quantity: 5.3, Unit: "oz"},
	}

	in = append(in,
		Ingredient{Name: "saffron", Quantity: 0.125, Unit: "tsp"},
		Ingredient{Name: "vanilla", Quantity: 0.25, Unit: "tsp"},
	)

	for _, factor := range []float64{1.75, 0.5, 0.25, 0.4375, 1.0 / 3} {
		out := ScaleIngredients(in, factor)

		if len(out) != len(in) {
			t.Fatalf("len = %d, want %d", len(out), len(in))
		}
		for i := range in {
			if out[i].Name != in[i].Name || out[i].Unit != in[i].Unit || out[i].Notes != in[i].Notes {
				t.Errorf("ingredient %d identity changed: %+v -> %+v", i, in[i], out[i])
			}
			want := in[i].Quantity * factor
			if diff := math.Abs(out[i].Quantity - want); diff > Tolerance(in[i].Unit) {
				t.Errorf("x%v %s: scaled %v, exact %v, diff %v exceeds tolerance", factor, in[i].Name, out[i].Quantity, want, diff)
			}
			if out[i].Quantity <= 0 {
				t.Errorf("x%v %s: positive quantity scaled to %v", factor, in[i].Name, out[i].Quantity)
			}
		}
	}

	if in[0].Quantity != 2 {
		t.Error("ScaleIngredients mutated its input")
	}
}

func TestScaleIngredients_FactorOneIsIdentity(t *testing.T) {
	in := []Ingredient{
		{Name: "rice", Quantity: 1.1, Unit: "cups"},
		{Name: "eggs", Quantity: 2.5, Unit: "eggs"},
	}

	out := ScaleIngredients(in, 1)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("factor 1 changed %+v to %+v", in[i], out[i])
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := map[float64]string{
		2:      "2",
		1.5:    "1.5",
		0.25:   "0.25",
		0.0625: "0.0625",
		3.10:   "3.1",
	}
	for in, want := range tests {
		if got := FormatQuantity(in); got != want {
			t.Errorf("FormatQuantity(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Sour   Cream "); got != "sour cream" {
		t.Errorf("NormalizeName() = %q", got)
	}
}

func TestResultBundle_MatchedCount(t *testing.T) {
	b := ResultBundle{ProductMatches: []ItemMatch{
		{Item: "milk", Match: &ProductMatch{ItemID: "1"}},
		{Item: "eggs", Error: "no results"},
		{Item: "flour", Match: &ProductMatch{ItemID: "2"}},
	}}
	if got := b.MatchedCount(); got != 2 {
		t.Errorf("MatchedCount() = %d, want 2", got)
	}
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}
	u.Add(TokenUsage{InputTokens: 3, OutputTokens: 2})
	if u.InputTokens != 13 || u.OutputTokens != 7 {
		t.Errorf("Add() = %+v", u)
	}
}
