package generate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/process"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// FullText renders llms-full.txt: the site header followed by every fetched page's
// markdown content. Pages without content fall back to their preview.
func FullText(rootURL string, pages []models.PageInfo) string {
	header := SiteHeader(rootURL, pages)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n> %s\n\n", header.Title, header.Description)
	for _, p := range pages {
		if !p.OK() {
			continue
		}
		body := strings.TrimSpace(p.Content)
		if body == "" {
			body = p.ContentPreview
		}
		if body == "" && p.Description == "" {
			continue
		}

		title := cleanTitle(p.Title)
		if title == "" {
			title = fallbackTitle(p.URL)
		}
		fmt.Fprintf(&b, "## %s\n\nSource: %s\n\n", title, p.URL)
		if body == "" {
			body = p.Description
		}
		b.WriteString(demoteHeadings(body))
		b.WriteString("\n\n")
	}
	return b.String()
}

// demoteHeadings pushes every ATX heading below the page's own "##" level
func demoteHeadings(markdown string) string {
	lines := strings.Split(markdown, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		if level > 6 || (len(trimmed) > level && trimmed[level] != ' ') {
			continue
		}
		if level+2 > 6 {
			lines[i] = "######" + trimmed[level:]
		} else {
			lines[i] = strings.Repeat("#", level+2) + trimmed[level:]
		}
	}
	return strings.Join(lines, "\n")
}

// TotalTokens counts the tokens of a rendered document
func TotalTokens(content string) int {
	return process.CountTokens(content)
}

// SiteTree renders the discovered page paths as an ASCII tree under the root's host
func SiteTree(rootURL string, pages []models.PageInfo) (string, error) {
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
	}
	var buf bytes.Buffer
	if err := utils.WriteURLTree(&buf, hostOf(rootURL), urls); err != nil {
		return "", err
	}
	return buf.String(), nil
}
