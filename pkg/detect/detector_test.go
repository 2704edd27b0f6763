package detect

import (
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetector() *ContentDetector {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewContentDetector(logrus.NewEntry(log))
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetect_Frameworks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Framework
	}{
		{
			name: "Docusaurus",
			html: `<html data-docusaurus><body><article class="theme-doc-markdown"><p>x</p></article></body></html>`,
			want: FrameworkDocusaurus,
		},
		{
			name: "MkDocs",
			html: `<html><body data-md-color-scheme="default"><div class="md-content"><article class="md-content__inner">x</article></div></body></html>`,
			want: FrameworkMkDocs,
		},
		{
			name: "VitePress",
			html: `<html><body><div class="VPDoc"><div class="vp-doc">x</div></div></body></html>`,
			want: FrameworkVitePress,
		},
		{
			name: "ReadTheDocs before Sphinx",
			html: `<html><body><div class="wy-nav-content"><div class="rst-content">x</div></div><script src="_static/sphinx_highlight.js"></script></body></html>`,
			want: FrameworkReadTheDocs,
		},
		{
			name: "Sphinx",
			html: `<html><body><div class="document"><div class="body">x</div></div><div class="sphinxsidebar"></div></body></html>`,
			want: FrameworkSphinx,
		},
		{
			name: "GitBook prefix class",
			html: `<html><body><div class="gitbook-root"><section class="normal markdown-section">x</section></div></body></html>`,
			want: FrameworkGitBook,
		},
		{
			name: "Unknown",
			html: `<html><body><div class="content"><p>plain site</p></div></body></html>`,
			want: FrameworkUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pageURL, _ := url.Parse("https://" + strings.ReplaceAll(strings.ToLower(tt.name), " ", "-") + ".test/")
			result := testDetector().Detect(mustDoc(t, tt.html), pageURL)

			assert.Equal(t, tt.want, result.Framework)
			if tt.want == FrameworkUnknown {
				assert.True(t, result.Fallback)
				assert.Empty(t, result.Selector)
			} else {
				assert.False(t, result.Fallback)
				assert.Equal(t, FrameworkSelector(tt.want), result.Selector)
			}
		})
	}
}

func TestDetect_RemembersHost(t *testing.T) {
	d := testDetector()
	pageURL, _ := url.Parse("https://docs.test/a")

	first := d.Detect(mustDoc(t, `<html><body><div class="md-content">x</div></body></html>`), pageURL)
	assert.Equal(t, FrameworkMkDocs, first.Framework)

	other, _ := url.Parse("https://docs.test/b")
	second := d.Detect(mustDoc(t, `<html><body><p>nothing</p></body></html>`), other)
	assert.Equal(t, FrameworkMkDocs, second.Framework, "same host reuses detection")
	assert.Equal(t, 1, d.Known())
}

func TestMainContent_FrameworkSelector(t *testing.T) {
	html := `<html><head><title>Guide</title></head><body data-docusaurus>
<nav>menu</nav><article class="theme-doc-markdown"><h1>Install</h1><p>Run the installer.</p></article></body></html>`
	pageURL, _ := url.Parse("https://docs.test/install")

	content, title, err := testDetector().MainContent(mustDoc(t, html), pageURL)

	require.NoError(t, err)
	assert.Equal(t, "Guide", title)
	assert.Contains(t, content.Text(), "Run the installer.")
	assert.NotContains(t, content.Text(), "menu")
}

func TestMainContent_FallsBackToBody(t *testing.T) {
	pageURL, _ := url.Parse("https://tiny.test/")

	content, _, err := testDetector().MainContent(mustDoc(t, `<html><body><span>hi</span></body></html>`), pageURL)

	require.NoError(t, err)
	assert.Contains(t, content.Text(), "hi")
}

func TestReadabilityExtractor_ExtractText(t *testing.T) {
	para := strings.Repeat("Readability keeps the long article paragraph intact for readers. ", 8)
	html := `<html><head><title>Article</title></head><body><div id="sidebar"><a href="/x">Link</a></div>
<article><h1>Article</h1><p>` + para + `</p><p>` + para + `</p></article></body></html>`
	pageURL, _ := url.Parse("https://blog.test/post")

	text, err := NewReadabilityExtractor().ExtractText(mustDoc(t, html), pageURL)

	require.NoError(t, err)
	assert.Contains(t, text, "Readability keeps the long article paragraph intact")
	assert.NotContains(t, text, "  ")
}
