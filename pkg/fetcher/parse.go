package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches elements that never carry recipe content.
const boilerplateSelector = "script, style, noscript, iframe, svg, nav, footer, header, aside"

// parseContent fills Title and Text from content.HTML.
func parseContent(content *Content) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
	if err != nil {
		return err
	}

	if content.Title == "" {
		content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find(boilerplateSelector).Remove()
	content.Text = VisibleText(doc.Find("body"))

	return nil
}

// VisibleText returns the text of sel one block per line with whitespace
// collapsed. Empty lines are dropped.
func VisibleText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := cleanText(c.Text()); t != "" {
					if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
						lines[n-1] += " " + t
					} else {
						lines = append(lines, t)
					}
				}
				return
			}
			block := isBlock(goquery.NodeName(c))
			if block {
				breakLine(&lines)
			}
			walk(c)
			if block {
				breakLine(&lines)
			}
		})
	}
	walk(sel)

	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\n")
	}
	return strings.Join(lines, "\n")
}

func breakLine(lines *[]string) {
	if n := len(*lines); n > 0 && !strings.HasSuffix((*lines)[n-1], "\n") {
		(*lines)[n-1] += "\n"
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "br", "tr", "table", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "main", "dd", "dt", "blockquote", "pre":
		return true
	}
	return false
}

// cleanText normalizes whitespace in text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
