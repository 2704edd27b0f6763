package watch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/orchestrate"
)

// Scheduler regenerates configured sites on their intervals and writes output only when
// the generated llms.txt changed
type Scheduler struct {
	appCfg       *config.AppConfig
	siteKeys     []string
	interval     time.Duration // Overrides every site's interval when > 0
	log          *logrus.Entry
	stateManager *StateManager
	orch         *orchestrate.Orchestrator
	now          func() time.Time
}

// NewScheduler creates a new watch scheduler. interval <= 0 uses each site's configured interval.
func NewScheduler(appCfg *config.AppConfig, runner crawler.Runner, siteKeys []string, interval time.Duration, log *logrus.Entry) *Scheduler {
	s := &Scheduler{
		appCfg:       appCfg,
		siteKeys:     siteKeys,
		interval:     interval,
		log:          log.WithField("component", "watch"),
		stateManager: NewStateManager(appCfg.StateFile),
		now:          time.Now,
	}
	s.orch = orchestrate.NewOrchestrator(appCfg, runner, orchestrate.Options{
		Metadata:  true,
		Unchanged: s.stateManager.Unchanged,
	}, log)
	return s
}

// LoadState reads the persisted run state. Run calls it itself.
func (s *Scheduler) LoadState() error {
	return s.stateManager.Load()
}

// Run loads state and checks for due sites every tick until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.LoadState(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode for %d sites", len(s.siteKeys))
	s.logSchedule()

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce regenerates the sites that are due and saves state. It returns their results.
func (s *Scheduler) RunOnce(ctx context.Context) []orchestrate.SiteResult {
	dueSites := s.getDueSites()
	if len(dueSites) == 0 {
		s.logNextRun()
		return nil
	}

	s.log.Infof("Regenerating %d due sites: %v", len(dueSites), dueSites)
	results := s.orch.Run(ctx, dueSites)
	if ctx.Err() != nil {
		// Interrupted runs are retried on the next start
		return results
	}

	now := s.now()
	for _, r := range results {
		errorMsg := ""
		if r.Error != nil {
			errorMsg = r.Error.Error()
		}
		s.stateManager.RecordRun(r.SiteKey, now, r.Success, r.PagesFetched, r.ContentHash, errorMsg)
		if r.Success && r.Written {
			s.log.WithField("site", r.SiteKey).Infof("Content changed, wrote %s", r.Files.LLMSPath)
		}
	}

	if err := s.stateManager.Save(); err != nil {
		s.log.Errorf("Failed to save watch state: %v", err)
	}
	s.logNextRun()
	return results
}

// siteInterval returns the regeneration interval for a site
func (s *Scheduler) siteInterval(siteKey string) time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	if site, ok := s.appCfg.Sites[siteKey]; ok && site.Interval > 0 {
		return site.Interval
	}
	return 24 * time.Hour
}

// getDueSites returns sites that are due for regeneration
func (s *Scheduler) getDueSites() []string {
	now := s.now()
	var due []string
	for _, siteKey := range s.siteKeys {
		if s.stateManager.ShouldRun(siteKey, s.siteInterval(siteKey), now) {
			due = append(due, siteKey)
		}
	}
	return due
}

// calculateTickInterval returns how often to check for due sites: a tenth of the
// shortest interval, between one and ten minutes
func (s *Scheduler) calculateTickInterval() time.Duration {
	shortest := time.Duration(0)
	for _, siteKey := range s.siteKeys {
		if iv := s.siteInterval(siteKey); shortest == 0 || iv < shortest {
			shortest = iv
		}
	}
	checkInterval := shortest / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

// logSchedule logs the current schedule
func (s *Scheduler) logSchedule() {
	now := s.now()
	s.log.Info("Watch schedule:")
	for _, siteKey := range s.siteKeys {
		interval := s.siteInterval(siteKey)
		state, exists := s.stateManager.GetSiteState(siteKey)
		if !exists {
			s.log.Infof("  %s: every %s, never run, will run immediately", siteKey, FormatInterval(interval))
			continue
		}
		status := "success"
		if !state.LastRunSuccess {
			status = "failed"
		}
		s.log.Infof("  %s: every %s, last run %v (%s, %d pages), next run %v",
			siteKey,
			FormatInterval(interval),
			state.LastRunTime.Format(time.RFC3339),
			status,
			state.PagesFetched,
			s.stateManager.GetNextRunTime(siteKey, interval, now).Format(time.RFC3339))
	}
}

// logNextRun logs when the next run will occur
func (s *Scheduler) logNextRun() {
	type nextRun struct {
		site string
		time time.Time
	}
	now := s.now()
	var nextRuns []nextRun
	for _, siteKey := range s.siteKeys {
		nextRuns = append(nextRuns, nextRun{siteKey, s.stateManager.GetNextRunTime(siteKey, s.siteInterval(siteKey), now)})
	}
	if len(nextRuns) == 0 {
		return
	}

	sort.Slice(nextRuns, func(i, j int) bool {
		return nextRuns[i].time.Before(nextRuns[j].time)
	})
	next := nextRuns[0]
	until := next.time.Sub(now)
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next regeneration: %s in %v (at %s)", next.site, until.Round(time.Second), next.time.Format("15:04:05"))
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration string with support for a day suffix ("7d", "1d12h")
func ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var days int
	var remaining string
	n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining)
	if n >= 1 {
		d = time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
}
