package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freellmstxt/llmstxt/pkg/fetch"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/process"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

func staticGetter(contentType, body string, err error) fetch.Getter {
	return fetch.GetterFunc(func(_ context.Context, rawURL string) (*fetch.Response, error) {
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(rawURL)
		return &fetch.Response{StatusCode: 200, FinalURL: u, Body: []byte(body), ContentType: contentType}, nil
	})
}

func TestPageFetcher_Fetch(t *testing.T) {
	body := `<html><head><title> Hello </title><meta property="og:description" content="OG text"></head>
		<body><article>` + strings.Repeat("Long article text. ", 10) + `</article></body></html>`
	pf := NewPageFetcher(staticGetter("text/html", body, nil), process.DefaultMetadataOptions(), nil, nil, testLogger())

	page := pf.Fetch(context.Background(), "https://example.com/hello")

	assert.Equal(t, "https://example.com/hello", page.URL)
	assert.Equal(t, "Hello", page.Title)
	assert.Equal(t, "OG text", page.Description)
	assert.True(t, strings.HasPrefix(page.ContentPreview, "Long article text."))
	assert.Empty(t, page.Content)
	assert.True(t, page.OK())
}

func TestPageFetcher_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"not found", fmt.Errorf("%w: status 404 404 Not Found", utils.ErrClientHTTPError), "HTTP_404: "},
		{"timeout", context.DeadlineExceeded, "Network_Timeout: "},
		{"refused", fmt.Errorf("dial tcp: connection refused"), "Network_ConnectionRefused: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pf := NewPageFetcher(staticGetter("", "", tt.err), process.DefaultMetadataOptions(), nil, nil, testLogger())
			page := pf.Fetch(context.Background(), "https://example.com/x")

			assert.True(t, strings.HasPrefix(page.FetchError, tt.wantPrefix), page.FetchError)
			assert.Equal(t, models.PageInfo{URL: "https://example.com/x", FetchError: page.FetchError}, page)
		})
	}
}

func TestPageFetcher_RecoversPanic(t *testing.T) {
	getter := fetch.GetterFunc(func(context.Context, string) (*fetch.Response, error) {
		panic("boom")
	})
	pf := NewPageFetcher(getter, process.DefaultMetadataOptions(), nil, nil, testLogger())

	page := pf.Fetch(context.Background(), "https://example.com/x")

	assert.Contains(t, page.FetchError, "panic: boom")
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"":                          true,
		"text/html":                 true,
		"text/html; charset=utf-8":  true,
		"TEXT/HTML":                 true,
		"application/xhtml+xml":     true,
		"application/pdf":           false,
		"application/json":          false,
		"text/plain; charset=utf-8": false,
	}
	for ct, want := range tests {
		assert.Equal(t, want, isHTML(ct), "isHTML(%q)", ct)
	}
}
