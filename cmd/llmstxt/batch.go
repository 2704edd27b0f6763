package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/orchestrate"
	"github.com/freellmstxt/llmstxt/pkg/watch"
)

// resolveSiteKeys returns the -sites selection, or every configured site when empty
func resolveSiteKeys(appCfg *config.AppConfig, sites string) ([]string, error) {
	siteKeys := splitSiteKeys(sites)
	if len(siteKeys) == 0 {
		siteKeys = orchestrate.GetAllSiteKeys(appCfg)
	}
	if len(siteKeys) == 0 {
		return nil, errors.New("no sites configured")
	}
	if err := orchestrate.ValidateSiteKeys(appCfg, siteKeys); err != nil {
		return nil, err
	}
	return siteKeys, nil
}

// doBatch generates llms.txt for the configured sites in parallel.
// Returns exit code (0 = all sites succeeded, 1 = error or any site failed).
func doBatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	sites := fs.String("sites", "", "Comma-separated site keys (default: all sites)")
	metadata := fs.Bool("metadata", true, "Write crawl_metadata.yaml for each site")
	tree := fs.Bool("tree", false, "Write site_tree.txt for each site")
	cache := fs.Bool("cache", false, "Use the crawl result cache (also enabled by cache.enabled)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: llmstxt batch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  llmstxt batch -config sites.yaml\n")
		fmt.Fprintf(stderr, "  llmstxt batch -config sites.yaml -sites docs,blog -tree\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	log, err := setupLogger(*logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	appCfg, err := loadConfig(*configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	siteKeys, err := resolveSiteKeys(appCfg, *sites)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logAppConfig(appCfg, log)

	ctx, stop := signalContext(log)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, appCfg, log, runnerOptions{Cache: *cache || appCfg.Cache.Enabled})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	orch := orchestrate.NewOrchestrator(appCfg, runner, orchestrate.Options{Metadata: *metadata, Tree: *tree}, log.WithField("component", "batch"))
	results := orch.Run(ctx, siteKeys)

	exitCode := 0
	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(stdout, "FAILED: [%s] %v\n", r.SiteKey, r.Error)
			exitCode = 1
			continue
		}
		fmt.Fprintf(stdout, "OK: [%s] %s (%d pages)\n", r.SiteKey, r.Files.LLMSPath, r.PagesFetched)
	}
	return exitCode
}

// doWatch regenerates the configured sites whenever they are due.
// Returns exit code (0 = stopped cleanly, 1 = error).
func doWatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	sites := fs.String("sites", "", "Comma-separated site keys (default: all sites)")
	intervalStr := fs.String("interval", "", "Regeneration interval for every site, e.g. 30m, 24h, 7d (default: per-site interval)")
	once := fs.Bool("once", false, "Regenerate the due sites once and exit")
	cache := fs.Bool("cache", false, "Use the crawl result cache (also enabled by cache.enabled)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: llmstxt watch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  llmstxt watch -config sites.yaml\n")
		fmt.Fprintf(stderr, "  llmstxt watch -config sites.yaml -sites docs -interval 12h\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	var interval time.Duration
	if *intervalStr != "" {
		iv, err := watch.ParseInterval(*intervalStr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if iv <= 0 {
			fmt.Fprintf(stderr, "Error: interval must be positive\n")
			return 1
		}
		interval = iv
	}

	log, err := setupLogger(*logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	appCfg, err := loadConfig(*configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	siteKeys, err := resolveSiteKeys(appCfg, *sites)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if interval > 0 {
		log.Infof("Watch interval: %s", watch.FormatInterval(interval))
	}

	ctx, stop := signalContext(log)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, appCfg, log, runnerOptions{Cache: *cache || appCfg.Cache.Enabled})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	scheduler := watch.NewScheduler(appCfg, runner, siteKeys, interval, log.WithField("component", "watch"))
	if *once {
		if err := scheduler.LoadState(); err != nil {
			log.Warnf("Failed to load watch state: %v (starting fresh)", err)
		}
		exitCode := 0
		for _, r := range scheduler.RunOnce(ctx) {
			switch {
			case !r.Success:
				fmt.Fprintf(stdout, "FAILED: [%s] %v\n", r.SiteKey, r.Error)
				exitCode = 1
			case r.Written:
				fmt.Fprintf(stdout, "CHANGED: [%s] %s\n", r.SiteKey, r.Files.LLMSPath)
			default:
				fmt.Fprintf(stdout, "UNCHANGED: [%s]\n", r.SiteKey)
			}
		}
		return exitCode
	}

	if err := scheduler.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Watch scheduler error: %v\n", err)
		return 1
	}
	log.Info("Watch mode stopped")
	return 0
}
