package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextCleaner strips page chrome and markup, leaving one line of visible text
// per block element.
type TextCleaner struct {
	remove string
}

// NewText creates a text cleaner that drops scripts, styles and site chrome
// (nav, header, footer, aside) before extracting text.
func NewText() *TextCleaner {
	return &TextCleaner{remove: "script, style, noscript, iframe, svg, nav, footer, header, aside, form"}
}

// Clean returns the visible text of html.
func (c *TextCleaner) Clean(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find(c.remove).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, dt, dd, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		// Parents that contain other blocks are emitted through their children.
		if s.Find("p, li, h1, h2, h3, h4, h5, h6").Length() > 0 {
			return
		}
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			lines = append(lines, t)
		}
	})

	if len(lines) == 0 {
		return strings.Join(strings.Fields(root.Text()), " "), nil
	}
	return strings.Join(lines, "\n"), nil
}

// Name returns the cleaner type.
func (c *TextCleaner) Name() string {
	return "text"
}
