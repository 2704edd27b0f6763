package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/models"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"24h", 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d12h", 36 * time.Hour, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
		{24 * time.Hour, "1d"},
		{36 * time.Hour, "1d12h"},
		{7 * 24 * time.Hour, "7d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatInterval(tt.input))
	}
}

func TestStateManager_PersistsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	sm := NewStateManager(path)
	require.NoError(t, sm.Load())

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, sm.ShouldRun("docs", time.Hour, now))
	assert.Equal(t, now, sm.GetNextRunTime("docs", time.Hour, now))

	sm.RecordRun("docs", now, true, 12, "hash-1", "")
	require.NoError(t, sm.Save())

	loaded := NewStateManager(path)
	require.NoError(t, loaded.Load())
	state, ok := loaded.GetSiteState("docs")
	require.True(t, ok)
	assert.True(t, state.LastRunSuccess)
	assert.Equal(t, 12, state.PagesFetched)
	assert.Equal(t, "hash-1", state.ContentHash)
	assert.True(t, state.LastChangeTime.Equal(now))

	assert.False(t, loaded.ShouldRun("docs", time.Hour, now.Add(30*time.Minute)))
	assert.True(t, loaded.ShouldRun("docs", time.Hour, now.Add(time.Hour)))
	assert.True(t, loaded.GetNextRunTime("docs", time.Hour, now).Equal(now.Add(time.Hour)))
	assert.Len(t, loaded.GetAllSiteStates(), 1)
}

func TestStateManager_HashTracking(t *testing.T) {
	sm := NewStateManager(filepath.Join(t.TempDir(), "state.json"))
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, sm.Unchanged("docs", "hash-1"))
	sm.RecordRun("docs", t0, true, 3, "hash-1", "")
	assert.True(t, sm.Unchanged("docs", "hash-1"))
	assert.False(t, sm.Unchanged("docs", ""))

	// A failed run keeps the last written hash
	sm.RecordRun("docs", t0.Add(time.Hour), false, 0, "", "boom")
	state, _ := sm.GetSiteState("docs")
	assert.Equal(t, "hash-1", state.ContentHash)
	assert.Equal(t, "boom", state.ErrorMessage)
	assert.True(t, state.LastChangeTime.Equal(t0))

	// Same hash does not move the change time
	sm.RecordRun("docs", t0.Add(2*time.Hour), true, 3, "hash-1", "")
	state, _ = sm.GetSiteState("docs")
	assert.True(t, state.LastChangeTime.Equal(t0))

	sm.RecordRun("docs", t0.Add(3*time.Hour), true, 4, "hash-2", "")
	state, _ = sm.GetSiteState("docs")
	assert.Equal(t, "hash-2", state.ContentHash)
	assert.True(t, state.LastChangeTime.Equal(t0.Add(3*time.Hour)))
}

func TestStateManager_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	assert.Error(t, NewStateManager(path).Load())
}

// versionedRunner serves a two-page site whose home description is the current version
type versionedRunner struct {
	version atomic.Value
	calls   atomic.Int32
}

func (r *versionedRunner) Crawl(_ context.Context, target models.CrawlTarget, _ crawler.ProgressFunc) (*models.CrawlResult, error) {
	r.calls.Add(1)
	root := target.RootURL + "/"
	return &models.CrawlResult{
		Target:  target,
		RootURL: root,
		Mode:    models.ModeRobotsSitemap,
		Pages: []models.PageInfo{
			{URL: root, Title: "Docs", Description: r.version.Load().(string)},
			{URL: root + "guide", Title: "Guide"},
		},
		Stats: models.CrawlStats{PagesFetched: 2},
	}, nil
}

func newTestScheduler(t *testing.T, runner crawler.Runner) (*Scheduler, *config.AppConfig, *time.Time) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		OutputDir: filepath.Join(dir, "out"),
		StateFile: filepath.Join(dir, "state.json"),
		Sites: map[string]config.SiteConfig{
			"docs": {URL: "https://docs.test", Interval: time.Hour},
		},
	}
	_, err := cfg.Validate()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewScheduler(cfg, runner, []string{"docs"}, 0, logrus.NewEntry(logger))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, cfg, &now
}

func TestScheduler_RunOnce(t *testing.T) {
	runner := &versionedRunner{}
	runner.version.Store("v1")
	s, cfg, now := newTestScheduler(t, runner)
	ctx := context.Background()

	results := s.RunOnce(ctx)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.True(t, results[0].Written)
	llmsPath := filepath.Join(cfg.OutputDir, "docs", "llms.txt")
	assert.FileExists(t, llmsPath)
	assert.FileExists(t, cfg.StateFile)

	// Not due yet
	*now = now.Add(30 * time.Minute)
	assert.Nil(t, s.RunOnce(ctx))
	assert.Equal(t, int32(1), runner.calls.Load())

	// Due, same content: nothing written
	require.NoError(t, os.WriteFile(llmsPath, []byte("sentinel"), 0644))
	*now = now.Add(time.Hour)
	results = s.RunOnce(ctx)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.False(t, results[0].Written)
	data, err := os.ReadFile(llmsPath)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data))

	// Due, changed content: rewritten
	runner.version.Store("v2")
	*now = now.Add(time.Hour)
	results = s.RunOnce(ctx)
	require.Len(t, results, 1)
	assert.True(t, results[0].Written)
	data, err = os.ReadFile(llmsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "> v2")

	state, ok := s.stateManager.GetSiteState("docs")
	require.True(t, ok)
	assert.Equal(t, results[0].ContentHash, state.ContentHash)
	assert.True(t, state.LastChangeTime.Equal(*now))
}

func TestScheduler_IntervalOverride(t *testing.T) {
	s, cfg, _ := newTestScheduler(t, &versionedRunner{})
	assert.Equal(t, time.Hour, s.siteInterval("docs"))
	assert.Equal(t, time.Minute*6, s.calculateTickInterval())

	s.interval = 30 * time.Minute
	assert.Equal(t, 30*time.Minute, s.siteInterval("docs"))
	assert.Equal(t, 3*time.Minute, s.calculateTickInterval())

	s.interval = 0
	site := cfg.Sites["docs"]
	site.Interval = 7 * 24 * time.Hour
	cfg.Sites["docs"] = site
	assert.Equal(t, 10*time.Minute, s.calculateTickInterval())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	runner := &versionedRunner{}
	runner.version.Store("v1")
	s, _, _ := newTestScheduler(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
