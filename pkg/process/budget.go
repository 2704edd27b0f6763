package process

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// TrimToTokenBudget returns the longest prefix of whole markdown sections that fits in
// maxTokens. A first section that is too large on its own is cut with a recursive
// character split instead. maxTokens <= 0 disables trimming.
func TrimToTokenBudget(markdown string, maxTokens, overlap int) (string, error) {
	if maxTokens <= 0 || CountTokens(markdown) <= maxTokens {
		return markdown, nil
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}

	lenFunc := func(s string) int { return CountTokens(s) }

	sections, err := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(maxTokens),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(lenFunc),
	).SplitText(markdown)
	if err != nil {
		return "", fmt.Errorf("splitting markdown: %w", err)
	}

	var kept []string
	used := 0
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		n := CountTokens(section)
		if used+n > maxTokens {
			break
		}
		kept = append(kept, section)
		used += n
	}
	if len(kept) > 0 {
		return strings.Join(kept, "\n\n"), nil
	}

	pieces, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxTokens),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithLenFunc(lenFunc),
	).SplitText(markdown)
	if err != nil {
		return "", fmt.Errorf("splitting text: %w", err)
	}
	for _, piece := range pieces {
		if piece = strings.TrimSpace(piece); piece != "" {
			return piece, nil
		}
	}
	return "", nil
}
