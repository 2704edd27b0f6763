package process

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one markdown heading
type Heading struct {
	Level int
	Text  string
}

// ExtractHeadings parses markdown and returns its headings in document order.
// Headings without literal text are skipped.
func ExtractHeadings(markdown []byte) []Heading {
	doc := goldmark.DefaultParser().Parse(text.NewReader(markdown))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				buf.Write(t.Segment.Value(markdown))
			}
		}
		if buf.Len() > 0 {
			headings = append(headings, Heading{Level: heading.Level, Text: buf.String()})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}
