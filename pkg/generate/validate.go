package generate

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/freellmstxt/llmstxt/pkg/process"
)

// Severity of a lint finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one llms.txt lint finding
type Issue struct {
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"` // 1-based; 0 when not tied to a line
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", i.Severity, i.Line, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// Validate checks content against the llms.txt layout: exactly one H1 first, a blockquote
// summary, and sections that each contain at least one link list.
func Validate(content []byte) []Issue {
	var issues []Issue

	h1 := 0
	for _, h := range process.ExtractHeadings(content) {
		if h.Level == 1 {
			h1++
		}
	}
	switch {
	case h1 == 0:
		issues = append(issues, Issue{Severity: SeverityError, Message: "missing H1 title"})
	case h1 > 1:
		issues = append(issues, Issue{Severity: SeverityError, Message: fmt.Sprintf("found %d H1 headings, expected 1", h1)})
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(content))
	first := doc.FirstChild()
	if first != nil {
		if heading, ok := first.(*ast.Heading); !ok || heading.Level != 1 {
			if h1 > 0 {
				issues = append(issues, Issue{Severity: SeverityWarning, Line: lineOf(first, content), Message: "document does not start with the H1 title"})
			}
		}
	}

	hasSummary := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*ast.Blockquote); ok {
			hasSummary = true
			break
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 2 {
			break
		}
	}
	if !hasSummary {
		issues = append(issues, Issue{Severity: SeverityWarning, Message: "missing blockquote summary before the first section"})
	}

	var section *ast.Heading
	sectionHasList := false
	closeSection := func() {
		if section != nil && !sectionHasList {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Line:     lineOf(section, content),
				Message:  fmt.Sprintf("section %q has no links", headingText(section, content)),
			})
		}
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 2 {
				closeSection()
				section, sectionHasList = node, false
			}
		case *ast.List:
			if containsLink(node) {
				sectionHasList = true
			}
		case *ast.ThematicBreak:
			closeSection()
			section = nil
		}
	}
	closeSection()
	return issues
}

func containsLink(n ast.Node) bool {
	found := false
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if _, ok := child.(*ast.Link); ok {
				found = true
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

func headingText(h *ast.Heading, source []byte) string {
	lines := h.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}
	seg := lines.At(0)
	return string(seg.Value(source))
}

// lineOf returns the 1-based line of n's first segment, or 0 when it has none
func lineOf(n ast.Node, source []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	offset := lines.At(0).Start
	line := 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}
	return line
}
