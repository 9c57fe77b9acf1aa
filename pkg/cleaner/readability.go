package cleaner

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// ReadabilityConfig configures the Readability cleaner.
type ReadabilityConfig struct {
	// CharThreshold is the minimum character count for valid content (default: 500).
	// Recipe cards are often short, so callers may lower it.
	CharThreshold int
	// BaseURL is used for resolving relative URLs. If empty, URLs remain relative.
	BaseURL string
}

// ReadabilityCleaner isolates the main article of a page with go-readability,
// dropping navigation, comments and ads around the recipe.
type ReadabilityCleaner struct {
	cfg    ReadabilityConfig
	parser readability.Parser
}

// NewReadability creates a new Readability cleaner.
// Pass nil for default configuration.
func NewReadability(cfg *ReadabilityConfig) *ReadabilityCleaner {
	if cfg == nil {
		cfg = &ReadabilityConfig{}
	}

	parser := readability.NewParser()
	if cfg.CharThreshold > 0 {
		parser.CharThresholds = cfg.CharThreshold
	}

	return &ReadabilityCleaner{
		cfg:    *cfg,
		parser: parser,
	}
}

// Clean extracts the main content from HTML as indented HTML for the
// Markdown cleaner. When Readability finds nothing the input is returned
// unchanged.
func (c *ReadabilityCleaner) Clean(htmlContent string) (string, error) {
	var baseURL *url.URL
	if c.cfg.BaseURL != "" {
		if u, err := url.Parse(c.cfg.BaseURL); err == nil {
			baseURL = u
		}
	}

	article, err := c.parser.Parse(strings.NewReader(htmlContent), baseURL)
	if err != nil {
		return "", err
	}
	if article.Node == nil {
		return htmlContent, nil
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		buf.Reset()
		if err := html.Render(&buf, article.Node); err != nil {
			return htmlContent, nil
		}
	}
	if buf.Len() == 0 {
		return htmlContent, nil
	}
	return gohtml.Format(buf.String()), nil
}

// Name returns the cleaner type.
func (c *ReadabilityCleaner) Name() string {
	return "readability"
}
