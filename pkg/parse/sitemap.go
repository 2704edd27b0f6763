package parse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// xmlSitemapDocument accepts either root element; XMLName tells them apart
type xmlSitemapDocument struct {
	XMLName  xml.Name
	URLs     []XMLURL     `xml:"url"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// SitemapKind distinguishes a sitemap index from a URL set
type SitemapKind int

const (
	SitemapKindURLSet SitemapKind = iota
	SitemapKindIndex
)

func (k SitemapKind) String() string {
	if k == SitemapKindIndex {
		return "sitemapindex"
	}
	return "urlset"
}

// SitemapDocument is a parsed sitemap. For an index, Locs are nested sitemap URLs;
// for a URL set, Locs are page URLs. Locs keep document order, trimmed, empties dropped.
type SitemapDocument struct {
	Kind SitemapKind
	Locs []string
}

// ParseSitemap parses sitemap XML. Errors wrap utils.ErrParsing.
func ParseSitemap(data []byte) (*SitemapDocument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty XML sitemap", utils.ErrParsing)
	}

	var raw xmlSitemapDocument
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: XML sitemap: %v", utils.ErrParsing, err)
	}

	doc := &SitemapDocument{}
	switch raw.XMLName.Local {
	case "sitemapindex":
		doc.Kind = SitemapKindIndex
		for _, s := range raw.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				doc.Locs = append(doc.Locs, loc)
			}
		}
	case "urlset":
		doc.Kind = SitemapKindURLSet
		for _, u := range raw.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				doc.Locs = append(doc.Locs, loc)
			}
		}
	default:
		return nil, fmt.Errorf("%w: XML root element '%s' is not a sitemap", utils.ErrParsing, raw.XMLName.Local)
	}
	return doc, nil
}
