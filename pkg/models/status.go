package models

import "fmt"

// DiscoveryMode is a state of the crawl waterfall
type DiscoveryMode int

const (
	ModeUnset         DiscoveryMode = iota // Zero value = no strategy has run
	ModeRobotsSitemap                      // Sitemaps listed in robots.txt
	ModePatternSitemap                     // Well-known sitemap paths
	ModeHTMLFallback                       // Homepage anchors, one hop
	ModeRootOnly                           // Nothing discovered; only the root is fetched
	ModeFetching                           // URL set finalized, pages being fetched
	ModeDone                               // Terminal
)

var modeNames = map[DiscoveryMode]string{
	ModeUnset:          "unset",
	ModeRobotsSitemap:  "robots_sitemap",
	ModePatternSitemap: "pattern_sitemap",
	ModeHTMLFallback:   "html_fallback",
	ModeRootOnly:       "root_only",
	ModeFetching:       "fetching",
	ModeDone:           "done",
}

// String implements fmt.Stringer for logging
func (m DiscoveryMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// IsValid returns true if the mode is a known value other than unset
func (m DiscoveryMode) IsValid() bool {
	_, ok := modeNames[m]
	return ok && m != ModeUnset
}

// IsDiscovery returns true for the modes that contribute URLs
func (m DiscoveryMode) IsDiscovery() bool {
	switch m {
	case ModeRobotsSitemap, ModePatternSitemap, ModeHTMLFallback:
		return true
	}
	return false
}

// MarshalText encodes the mode by name so JSON and YAML stay readable
func (m DiscoveryMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name
func (m *DiscoveryMode) UnmarshalText(text []byte) error {
	for mode, name := range modeNames {
		if name == string(text) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown discovery mode %q", string(text))
}

// Origin tags how a URL entered the session
type Origin string

const (
	OriginSitemap      Origin = "sitemap"
	OriginHTMLFallback Origin = "html-fallback"
	OriginRoot         Origin = "root" // Last-resort root entry
)

// String implements fmt.Stringer for logging
func (o Origin) String() string {
	if o == "" {
		return "unset"
	}
	return string(o)
}

// IsValid returns true if the origin is a known value
func (o Origin) IsValid() bool {
	switch o {
	case OriginSitemap, OriginHTMLFallback, OriginRoot:
		return true
	}
	return false
}

// ProgressStage is the coarse phase reported in a ProgressEvent
type ProgressStage string

const (
	StageDiscovering ProgressStage = "discovering"
	StageFetching    ProgressStage = "fetching"
	StageDone        ProgressStage = "done"
)

// String implements fmt.Stringer for logging
func (s ProgressStage) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}
