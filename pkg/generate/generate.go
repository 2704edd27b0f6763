package generate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/models"
)

const (
	mainCategory = "Main"
	footerBrand  = "FreeLLMsTxt"
)

// Options controls llms.txt rendering
type Options struct {
	IncludeDescriptions  bool
	GroupByPath          bool
	MaxTitleLength       int // Runes, including the "..." of a cut title
	MaxDescriptionLength int // Runes before "..." is appended
	Footer               bool
	Now                  func() time.Time // Footer date; time.Now when nil
}

// DefaultOptions matches the stock configuration
func DefaultOptions() Options {
	return Options{IncludeDescriptions: true, GroupByPath: true, MaxTitleLength: 80, MaxDescriptionLength: 200, Footer: true}
}

// OptionsFromConfig converts the generator section of the config
func OptionsFromConfig(cfg config.GeneratorConfig) Options {
	opts := Options{
		IncludeDescriptions:  cfg.DescriptionsEnabled(),
		GroupByPath:          cfg.GroupingEnabled(),
		MaxTitleLength:       cfg.MaxTitleLength,
		MaxDescriptionLength: cfg.MaxDescriptionLength,
		Footer:               cfg.FooterEnabled(),
	}
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = 80
	}
	if opts.MaxDescriptionLength <= 0 {
		opts.MaxDescriptionLength = 200
	}
	return opts
}

// Header is the site title and summary shown at the top of llms.txt
type Header struct {
	Title       string
	Description string
}

// SiteHeader derives the header from the root URL, overridden by the root page's
// title and description when the root was fetched.
func SiteHeader(rootURL string, pages []models.PageInfo) Header {
	host := hostOf(rootURL)
	bare := strings.TrimPrefix(host, "www.")
	label, _, _ := strings.Cut(bare, ".")

	h := Header{
		Title:       titleCase(label),
		Description: "Documentation and resources from " + host,
	}
	rootKey := comparableURL(rootURL)
	for _, p := range pages {
		if !p.OK() || comparableURL(p.URL) != rootKey {
			continue
		}
		if t := cleanTitle(p.Title); t != "" {
			h.Title = t
		}
		if p.Description != "" {
			h.Description = p.Description
		}
		break
	}
	return h
}

// Generate renders llms.txt for the pages of one crawl. Pages with a fetch error are skipped.
func Generate(rootURL string, pages []models.PageInfo, opts Options) string {
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = 80
	}
	if opts.MaxDescriptionLength <= 0 {
		opts.MaxDescriptionLength = 200
	}

	ok := make([]models.PageInfo, 0, len(pages))
	for _, p := range pages {
		if p.OK() {
			ok = append(ok, p)
		}
	}

	header := SiteHeader(rootURL, ok)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n> %s\n\n", header.Title, header.Description)

	if opts.GroupByPath {
		writeGrouped(&b, ok, opts)
	} else {
		for _, p := range ok {
			b.WriteString(linkLine(p, opts))
			b.WriteByte('\n')
		}
		if len(ok) > 0 {
			b.WriteByte('\n')
		}
	}

	if opts.Footer {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		fmt.Fprintf(&b, "---\nGenerated by %s on %s\nSource: %s\n", footerBrand, now().Format("2006-01-02"), rootURL)
	}
	return b.String()
}

func writeGrouped(b *strings.Builder, pages []models.PageInfo, opts Options) {
	categories := make(map[string][]models.PageInfo)
	for _, p := range pages {
		cat := Category(p.URL)
		categories[cat] = append(categories[cat], p)
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == mainCategory) != (names[j] == mainCategory) {
			return names[i] == mainCategory
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		catPages := categories[name]
		if name == mainCategory && len(catPages) == 1 {
			b.WriteString(linkLine(catPages[0], opts))
			b.WriteString("\n\n")
			continue
		}
		sort.SliceStable(catPages, func(i, j int) bool { return catPages[i].URL < catPages[j].URL })
		fmt.Fprintf(b, "## %s\n\n", name)
		for _, p := range catPages {
			b.WriteString(linkLine(p, opts))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
}

// Category is the first path segment of rawURL, title-cased, or "Main" for the site root
func Category(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return mainCategory
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		return titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(seg))
	}
	return mainCategory
}

func linkLine(p models.PageInfo, opts Options) string {
	title := cleanTitle(p.Title)
	if title == "" {
		title = fallbackTitle(p.URL)
	}
	title = cutTitle(title, opts.MaxTitleLength)

	line := fmt.Sprintf("- [%s](%s)", escapeLinkText(title), p.URL)
	if opts.IncludeDescriptions && p.Description != "" {
		line += ": " + cutDescription(strings.Join(strings.Fields(p.Description), " "), opts.MaxDescriptionLength)
	}
	return line
}

// cleanTitle drops the site suffix of a page title ("Page | Site", "Page - Site")
func cleanTitle(title string) string {
	title, _, _ = strings.Cut(title, " | ")
	title, _, _ = strings.Cut(title, " - ")
	return strings.TrimSpace(title)
}

func fallbackTitle(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if u, err := url.Parse(trimmed); err == nil && strings.Trim(u.Path, "/") != "" {
		if i := strings.LastIndex(trimmed, "/"); i >= 0 && i < len(trimmed)-1 {
			return trimmed[i+1:]
		}
	}
	return "Page"
}

func cutTitle(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

func cutDescription(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// comparableURL reduces a URL to host and path without "www." or a trailing slash
func comparableURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimRight(rawURL, "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host + strings.TrimRight(u.Path, "/")
}
