package crawler

import (
	"net/url"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSession_AddPage(t *testing.T) {
	root := mustParse(t, "https://example.com/")
	s := newSession(root, 10, true, true, nil)

	assert.True(t, s.AddPage(mustParse(t, "https://example.com/a")))
	assert.False(t, s.AddPage(mustParse(t, "https://EXAMPLE.com:443/a/")), "normalized duplicate")
	assert.True(t, s.AddPage(mustParse(t, "https://www.example.com/b")), "www ignored")
	assert.False(t, s.AddPage(mustParse(t, "https://other.com/c")), "cross domain")
	assert.False(t, s.AddPage(mustParse(t, "ftp://example.com/d")))
	assert.False(t, s.AddPage(nil))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 8, s.Remaining())
}

func TestSession_AddPage_SameDomainDisabled(t *testing.T) {
	s := newSession(mustParse(t, "https://example.com/"), 10, false, true, nil)

	assert.True(t, s.AddPage(mustParse(t, "https://other.com/c")))
	assert.False(t, s.AddLink(mustParse(t, "https://other.com/d")), "homepage links stay on site")
}

func TestSession_Capacity(t *testing.T) {
	s := newSession(mustParse(t, "https://example.com/"), 2, true, true, nil)

	assert.True(t, s.AddPage(mustParse(t, "https://example.com/1")))
	assert.False(t, s.Exhausted())
	assert.True(t, s.AddPage(mustParse(t, "https://example.com/2")))
	assert.True(t, s.Exhausted())
	assert.False(t, s.AddPage(mustParse(t, "https://example.com/3")))
	assert.Equal(t, 0, s.Remaining())
}

func TestSession_ConcurrentCapacity(t *testing.T) {
	s := newSession(mustParse(t, "https://example.com/"), 50, true, true, nil)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.AddPage(&url.URL{Scheme: "https", Host: "example.com", Path: "/p/" + string(rune('a'+n%26)) + string(rune('a'+n/26))})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.True(t, s.Exhausted())
}

func TestSession_MarkSitemap(t *testing.T) {
	s := newSession(mustParse(t, "https://example.com/"), 5, true, true, nil)

	assert.True(t, s.MarkSitemap("https://example.com/sitemap.xml"))
	assert.False(t, s.MarkSitemap("https://example.com/sitemap.xml"))
	assert.True(t, s.MarkSitemap("https://cdn.example.net/sitemap.xml"))
	assert.Equal(t, 2, s.SitemapsVisited())
}

func TestSession_MarkSitemap_Spellings(t *testing.T) {
	s := newSession(mustParse(t, "https://example.com/"), 5, true, true, nil)

	assert.True(t, s.MarkSitemap("https://example.com/a.xml"))
	assert.False(t, s.MarkSitemap("https://example.com/a.xml?"))
	assert.False(t, s.MarkSitemap("HTTPS://Example.COM:443/a.xml"))
	assert.False(t, s.MarkSitemap("https://example.com:/a.xml#top"))
	assert.True(t, s.MarkSitemap("https://example.com/a.xml?page=2"), "query selects another page")
	assert.Equal(t, 2, s.SitemapsVisited())
}

func TestSession_AddHomepage(t *testing.T) {
	links := func(paths ...string) []*url.URL {
		out := make([]*url.URL, len(paths))
		for i, p := range paths {
			out[i] = mustParse(t, "https://example.com"+p)
		}
		return out
	}

	t.Run("homepage admitted with links", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 10, true, true, nil)
		assert.Equal(t, 3, s.AddHomepage(links("/a", "/b")))
		assert.Equal(t, "https://example.com/", s.finalize()[0].URL)
		assert.Equal(t, 7, s.Remaining())
	})

	t.Run("no links leaves the session empty", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 10, true, true, nil)
		assert.Equal(t, 0, s.AddHomepage(links()))
		assert.Equal(t, 0, s.Len())
		assert.Equal(t, 10, s.Remaining())
	})

	t.Run("self link counted once", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 10, true, true, nil)
		assert.Equal(t, 2, s.AddHomepage(links("/", "/a")))
		assert.Equal(t, 2, s.Len())
	})

	t.Run("slot held for the homepage", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 2, true, true, nil)
		assert.Equal(t, 2, s.AddHomepage(links("/a", "/b", "/c")))
		got := s.finalize()
		require.Len(t, got, 2)
		assert.Equal(t, "https://example.com/", got[0].URL)
		assert.Equal(t, "https://example.com/a", got[1].URL)
	})
}

func TestSession_Exclude(t *testing.T) {
	exclude := []*regexp.Regexp{regexp.MustCompile(`/tag/`), regexp.MustCompile(`.*`)}
	s := newSession(mustParse(t, "https://example.com/"), 5, true, true, exclude[:1])

	assert.False(t, s.AddPage(mustParse(t, "https://example.com/tag/go")))
	assert.True(t, s.AddPage(mustParse(t, "https://example.com/post")))

	// The root is never excluded
	all := newSession(mustParse(t, "https://example.com/"), 5, true, true, exclude[1:])
	assert.True(t, all.AddPage(mustParse(t, "https://example.com/")))
	assert.False(t, all.AddPage(mustParse(t, "https://example.com/post")))
}

func TestSession_Finalize(t *testing.T) {
	t.Run("empty gives root", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 5, true, true, nil)
		assert.Equal(t, []models.DiscoveredURL{{URL: "https://example.com/", Origin: models.OriginRoot, Index: 0}}, s.finalize())
	})

	t.Run("root moved first", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 5, true, true, nil)
		s.setOrigin(models.OriginHTMLFallback)
		s.AddLink(mustParse(t, "https://example.com/a"))
		s.AddLink(mustParse(t, "https://example.com/"))
		s.AddLink(mustParse(t, "https://example.com/b"))

		assert.Equal(t, []models.DiscoveredURL{
			{URL: "https://example.com/", Origin: models.OriginHTMLFallback, Index: 0},
			{URL: "https://example.com/a", Origin: models.OriginHTMLFallback, Index: 1},
			{URL: "https://example.com/b", Origin: models.OriginHTMLFallback, Index: 2},
		}, s.finalize())
	})

	t.Run("root absent keeps order", func(t *testing.T) {
		s := newSession(mustParse(t, "https://example.com/"), 5, true, true, nil)
		s.AddPage(mustParse(t, "https://example.com/z"))
		s.AddPage(mustParse(t, "https://example.com/y"))

		got := s.finalize()
		require.Len(t, got, 2)
		assert.Equal(t, "https://example.com/z", got[0].URL)
		assert.Equal(t, models.OriginSitemap, got[0].Origin)
		assert.Equal(t, 1, got[1].Index)
	})
}
