package utils

import (
	"regexp"
)

// CompileRegexPatterns compiles the configured exclude patterns.
// Empty entries are skipped; the first invalid pattern aborts with ErrConfigValidation.
func CompileRegexPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, WrapErrorf(ErrConfigValidation, "invalid exclude pattern #%d ('%s')", i+1, pattern)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// MatchesAny reports whether s matches at least one compiled pattern.
func MatchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
