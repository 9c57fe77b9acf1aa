package cleaner

import (
	"strings"
	"testing"
)

func TestMarkdownCleaner_Clean(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{"heading and paragraph", `<h1>Title</h1><p>A paragraph.</p>`, []string{"# Title", "A paragraph."}},
		{"ingredient list", `<ul><li>2 cups flour</li><li>1 tsp salt</li></ul>`, []string{"- 2 cups flour", "- 1 tsp salt"}},
		{"ordered steps", `<ol><li>Boil water</li><li>Add pasta</li></ol>`, []string{"1. Boil water", "2. Add pasta"}},
	}

	c := NewMarkdown()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Clean(tt.html)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Clean() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestMarkdownCleaner_StripOptions(t *testing.T) {
	html := `<p>See <a href="https://example.com/x">the guide</a> <img src="pic.jpg" alt="pic"></p>`

	got, err := NewMarkdown(WithStripLinks(true), WithStripImages(true)).Clean(html)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if strings.Contains(got, "example.com") || strings.Contains(got, "pic.jpg") {
		t.Errorf("links/images not stripped: %q", got)
	}
	if !strings.Contains(got, "the guide") {
		t.Errorf("link text lost: %q", got)
	}

	kept, err := NewMarkdown().Clean(html)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if !strings.Contains(kept, "https://example.com/x") {
		t.Errorf("link dropped without strip option: %q", kept)
	}
}

func TestMarkdownCleaner_Name(t *testing.T) {
	if got := NewMarkdown().Name(); got != "markdown" {
		t.Errorf("Name() = %q, want markdown", got)
	}
}

func TestCleanWhitespace(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"multiple blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"leading and trailing", "\n\n  a  \n\n", "a"},
		{"trailing spaces on lines", "a   \nb\t", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanWhitespace(tt.in); got != tt.want {
				t.Errorf("cleanWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
