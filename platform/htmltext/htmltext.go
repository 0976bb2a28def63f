// Package htmltext converts HTML email bodies to plain text for the parsers.
// This is part of the platform layer and contains no business logic.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Extract returns the visible text content of an HTML document with
// whitespace collapsed. Script and style contents are skipped. On a parse
// failure the input is returned unchanged so parsers can still attempt
// regex extraction.
func Extract(htmlBody string) string {
	if strings.TrimSpace(htmlBody) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody
	}

	var sb strings.Builder
	collect(doc, &sb)
	return collapse(sb.String())
}

func collect(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head":
			return
		case "br", "p", "div", "tr", "li", "table", "h1", "h2", "h3":
			sb.WriteByte('\n')
		}
	case html.TextNode:
		sb.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "tr", "li", "table", "h1", "h2", "h3", "td":
			sb.WriteByte('\n')
		}
	}
}

// collapse trims each line and squeezes runs of blank lines, preserving the
// line structure the extraction regexes rely on.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
