package crawler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultMaxLogLines = 500

// LogRecorder is a logrus hook that keeps the messages of one crawl so they can be
// returned to an API client. Once full, further lines are dropped.
type LogRecorder struct {
	mu       sync.Mutex
	lines    []string
	maxLines int
	dropped  int
	levels   []logrus.Level
}

// NewLogRecorder records entries at level and above. maxLines <= 0 means 500.
func NewLogRecorder(level logrus.Level, maxLines int) *LogRecorder {
	if maxLines <= 0 {
		maxLines = defaultMaxLogLines
	}
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &LogRecorder{maxLines: maxLines, levels: levels}
}

// Levels implements logrus.Hook
func (r *LogRecorder) Levels() []logrus.Level {
	return r.levels
}

// Fire implements logrus.Hook
func (r *LogRecorder) Fire(entry *logrus.Entry) error {
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(entry.Level.String()), entry.Message)
	if u, ok := entry.Data["url"]; ok {
		line += fmt.Sprintf(" (%v)", u)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) >= r.maxLines {
		r.dropped++
		return nil
	}
	r.lines = append(r.lines, line)
	return nil
}

// Lines returns a copy of the recorded lines, with a note when some were dropped
func (r *LogRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines), len(r.lines)+1)
	copy(out, r.lines)
	if r.dropped > 0 {
		out = append(out, fmt.Sprintf("[INFO] %d more log lines omitted", r.dropped))
	}
	return out
}
