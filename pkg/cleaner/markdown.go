package cleaner

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

// MarkdownCleaner converts HTML to Markdown using html-to-markdown. Headings
// and lists survive, which keeps ingredient lists recognisable to the model.
type MarkdownCleaner struct {
	cfg markdownConfig
}

// MarkdownOption configures the markdown cleaner.
type MarkdownOption func(*markdownConfig)

type markdownConfig struct {
	stripLinks  bool
	stripImages bool
	domain      string
}

// WithStripLinks replaces links with their text.
func WithStripLinks(strip bool) MarkdownOption {
	return func(c *markdownConfig) {
		c.stripLinks = strip
	}
}

// WithStripImages removes images entirely.
func WithStripImages(strip bool) MarkdownOption {
	return func(c *markdownConfig) {
		c.stripImages = strip
	}
}

// WithDomain resolves relative links against domain.
func WithDomain(domain string) MarkdownOption {
	return func(c *markdownConfig) {
		c.domain = domain
	}
}

// NewMarkdown creates a new Markdown cleaner.
func NewMarkdown(opts ...MarkdownOption) *MarkdownCleaner {
	c := &MarkdownCleaner{}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	return c
}

// Clean converts HTML to Markdown.
func (c *MarkdownCleaner) Clean(html string) (string, error) {
	if c.cfg.stripImages || c.cfg.stripLinks {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return "", err
		}
		if c.cfg.stripImages {
			doc.Find("img, picture, figure > svg").Remove()
		}
		if c.cfg.stripLinks {
			doc.Find("a").Each(func(_ int, s *goquery.Selection) {
				s.ReplaceWithHtml(s.Text())
			})
		}
		if html, err = doc.Html(); err != nil {
			return "", err
		}
	}

	var opts []converter.ConvertOptionFunc
	if c.cfg.domain != "" {
		opts = append(opts, converter.WithDomain(c.cfg.domain))
	}

	markdown, err := md.ConvertString(html, opts...)
	if err != nil {
		return "", err
	}

	return cleanWhitespace(markdown), nil
}

// Name returns the cleaner type.
func (c *MarkdownCleaner) Name() string {
	return "markdown"
}

// cleanWhitespace collapses runs of blank lines to one.
func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	blankCount := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, "")
			}
			continue
		}
		blankCount = 0
		result = append(result, strings.TrimRight(line, " \t"))
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}
