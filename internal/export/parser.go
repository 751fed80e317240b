package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"memfetch/internal/domain"
)

// directiveRe pulls the locator and request-mode flag out of the inline
// onclick handler: downloadMemories('<url>', this, true|false)
var directiveRe = regexp.MustCompile(`downloadMemories\('(.+?)',\s*this,\s*(true|false)\)`)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse walks the export document and returns one Memory per table row that
// carries a parseable download directive. Rows without one (headers, malformed
// entries) are dropped silently.
func (p *Parser) Parse(r io.Reader) ([]domain.Memory, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export document: %w", err)
	}

	var memories []domain.Memory
	for _, row := range elementsByTag(doc, "tr") {
		cells := elementsByTag(row, "td")
		if len(cells) < 4 {
			continue
		}

		onclick, ok := findOnclick(cells[3])
		if !ok {
			continue
		}

		match := directiveRe.FindStringSubmatch(onclick)
		if match == nil {
			continue
		}

		mode := domain.ModeIndirect
		if match[2] == "true" {
			mode = domain.ModeDirect
		}

		memories = append(memories, domain.Memory{
			Locator:   match[1],
			Timestamp: textContent(cells[0]),
			Kind:      domain.ParseMediaKind(textContent(cells[1])),
			Mode:      mode,
		})
	}

	return memories, nil
}

// findOnclick returns the onclick attribute of the first anchor under n.
func findOnclick(n *html.Node) (string, bool) {
	for _, a := range elementsByTag(n, "a") {
		for _, attr := range a.Attr {
			if attr.Key == "onclick" && attr.Val != "" {
				return attr.Val, true
			}
		}
	}
	return "", false
}

// elementsByTag collects descendant elements of n with the given tag name,
// in document order. n itself is excluded.
func elementsByTag(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			found = append(found, c)
			continue
		}
		found = append(found, elementsByTag(c, tag)...)
	}
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
