// Package cleaner turns fetched recipe HTML into compact text for the LLM.
// Cleaners compose: the default chain isolates the main article with
// Readability and renders it as Markdown.
package cleaner

import (
	"fmt"
	"strings"
)

// Cleaner transforms HTML content into a cleaner format for extraction.
type Cleaner interface {
	// Clean transforms the input HTML into a cleaned format.
	Clean(html string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// Names accepted by New.
const (
	NameReadability = "readability"
	NameMarkdown    = "markdown"
	NameText        = "text"
	NameNone        = "none"
)

// New builds a cleaner by name. "readability" is the default chain of
// Readability followed by Markdown; baseURL resolves relative links. Every
// cleaner except "none" also surfaces JSON-LD recipe data.
func New(name, baseURL string) (Cleaner, error) {
	switch strings.ToLower(name) {
	case "", NameReadability:
		return NewStructured(NewChain(
			NewReadability(&ReadabilityConfig{BaseURL: baseURL, CharThreshold: recipeCharThreshold}),
			NewMarkdown(WithStripImages(true)),
		)), nil
	case NameMarkdown:
		return NewStructured(NewMarkdown(WithStripImages(true))), nil
	case NameText:
		return NewStructured(NewText()), nil
	case NameNone, "noop":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown cleaner %q (want readability, markdown, text or none)", name)
	}
}

// recipeCharThreshold is lower than Readability's default of 500; short
// recipe cards were otherwise discarded.
const recipeCharThreshold = 250
