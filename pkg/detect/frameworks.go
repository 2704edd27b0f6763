package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FrameworkSignature lists markers that identify a framework and where it puts content
type FrameworkSignature struct {
	Framework    Framework
	Selector     string
	Attributes   []string // Attribute names, e.g. "data-docusaurus"
	Classes      []string // Class names; a trailing "*" matches by prefix
	Scripts      []string // Substrings of script src values
	HTMLPatterns []string // Case-insensitive substrings of the raw HTML
}

// Matches reports whether any marker of sig appears in doc. rawHTML is the rendered document.
func (sig *FrameworkSignature) Matches(doc *goquery.Document, rawHTML string) bool {
	for _, attr := range sig.Attributes {
		if doc.Find("["+attr+"]").Length() > 0 {
			return true
		}
	}
	for _, class := range sig.Classes {
		if hasClass(doc, class) {
			return true
		}
	}
	for _, pattern := range sig.Scripts {
		if hasScript(doc, pattern) {
			return true
		}
	}
	lower := strings.ToLower(rawHTML)
	for _, pattern := range sig.HTMLPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func hasClass(doc *goquery.Document, class string) bool {
	prefix, isPrefix := strings.CutSuffix(class, "*")
	if !isPrefix {
		return doc.Find("."+class).Length() > 0
	}
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func hasScript(doc *goquery.Document, pattern string) bool {
	found := false
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.AttrOr("src", ""), pattern) {
			found = true
			return false
		}
		return true
	})
	return found
}

func matchSignature(doc *goquery.Document) *FrameworkSignature {
	rawHTML, _ := doc.Html()
	for i := range frameworkSignatures {
		if frameworkSignatures[i].Matches(doc, rawHTML) {
			return &frameworkSignatures[i]
		}
	}
	return nil
}

// frameworkSignatures are checked in order; ReadTheDocs precedes Sphinx because RTD builds on Sphinx
var frameworkSignatures = []FrameworkSignature{
	{
		Framework:    FrameworkDocusaurus,
		Selector:     "article[class*='theme-doc'], .theme-doc-markdown, article.markdown, main article",
		Attributes:   []string{"data-docusaurus", "data-docusaurus-root-container"},
		Classes:      []string{"docusaurus-wrapper", "theme-doc-markdown"},
		HTMLPatterns: []string{"__docusaurus", "docusaurus.io"},
	},
	{
		Framework:    FrameworkMkDocs,
		Selector:     "article.md-content__inner, .md-content article, .md-content",
		Attributes:   []string{"data-md-component", "data-md-color-scheme"},
		Classes:      []string{"md-content", "md-main"},
		HTMLPatterns: []string{"mkdocs", "material for mkdocs"},
	},
	{
		Framework:    FrameworkVitePress,
		Selector:     ".vp-doc, .VPDoc .content, main.main",
		Classes:      []string{"VPDoc", "vp-doc", "VPContent"},
		HTMLPatterns: []string{"vitepress"},
	},
	{
		Framework:    FrameworkReadTheDocs,
		Selector:     ".rst-content, div[role='main'], .document",
		Classes:      []string{"rst-content", "wy-nav-content"},
		Scripts:      []string{"readthedocs", "rtd"},
		HTMLPatterns: []string{"readthedocs.org", "readthedocs.io", "sphinx-rtd-theme"},
	},
	{
		Framework:    FrameworkSphinx,
		Selector:     "div.document, div.body, article.bd-article, main.bd-main",
		Classes:      []string{"sphinxsidebar", "sphinx-tabs"},
		Scripts:      []string{"searchindex.js", "_static/sphinx"},
		HTMLPatterns: []string{"created using sphinx", "sphinx-doc.org", "_static/alabaster", "_static/pygments"},
	},
	{
		Framework:    FrameworkGitBook,
		Selector:     "section.normal.markdown-section, .page-inner section, main[class*='gitbook']",
		Classes:      []string{"gitbook*", "markdown-section"},
		HTMLPatterns: []string{"gitbook", "gb-page"},
	},
}

// FrameworkSelector returns the content selector for fw, or "" for unknown frameworks
func FrameworkSelector(fw Framework) string {
	for _, sig := range frameworkSignatures {
		if sig.Framework == fw {
			return sig.Selector
		}
	}
	return ""
}
