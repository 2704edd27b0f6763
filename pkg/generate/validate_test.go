package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_GeneratedOutputIsClean(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = fixedNow
	content := Generate("https://www.example.com/", samplePages(), opts)

	assert.Empty(t, Validate([]byte(content)))
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Issue
	}{
		{
			name:    "missing title",
			content: "> summary\n\n## Docs\n\n- [a](https://a.example)\n",
			want:    []Issue{{Severity: SeverityError, Message: "missing H1 title"}},
		},
		{
			name:    "two titles",
			content: "# One\n\n> s\n\n# Two\n",
			want:    []Issue{{Severity: SeverityError, Message: "found 2 H1 headings, expected 1"}},
		},
		{
			name:    "missing summary",
			content: "# Title\n\n## Docs\n\n- [a](https://a.example)\n",
			want:    []Issue{{Severity: SeverityWarning, Message: "missing blockquote summary before the first section"}},
		},
		{
			name:    "empty section",
			content: "# T\n\n> s\n\n## Empty\n\n## Full\n\n- [a](https://a.example)\n",
			want:    []Issue{{Severity: SeverityWarning, Line: 5, Message: `section "Empty" has no links`}},
		},
		{
			name:    "empty last section keeps full heading text",
			content: "# T\n\n> s\n\n## Docs\n\n- [a](https://a.example)\n\n## Getting Started\n",
			want:    []Issue{{Severity: SeverityWarning, Line: 9, Message: `section "Getting Started" has no links`}},
		},
		{
			name:    "title not first",
			content: "intro text\n\n# T\n\n> s\n",
			want:    []Issue{{Severity: SeverityWarning, Line: 1, Message: "document does not start with the H1 title"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate([]byte(tt.content)))
		})
	}
}

func TestIssue_String(t *testing.T) {
	assert.Equal(t, "warning: line 3: x", Issue{Severity: SeverityWarning, Line: 3, Message: "x"}.String())
	assert.Equal(t, "error: y", Issue{Severity: SeverityError, Message: "y"}.String())
}
