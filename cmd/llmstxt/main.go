package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/metrics"
	"github.com/freellmstxt/llmstxt/pkg/storage"
)

const (
	version           = "1.0.0"
	defaultConfigPath = "llmstxt.yaml"
	cacheGCInterval   = 10 * time.Minute
	hostIdleInterval  = 5 * time.Minute
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsageTo(stderr)
		return 1
	}

	switch args[0] {
	case "generate":
		return doGenerate(args[1:], stdout, stderr)
	case "serve":
		return doServe(args[1:], stdout, stderr)
	case "mcp-server":
		return doMcpServer(args[1:], stdout, stderr)
	case "batch":
		return doBatch(args[1:], stdout, stderr)
	case "watch":
		return doWatch(args[1:], stdout, stderr)
	case "validate":
		return doValidate(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "llmstxt %s\n", version)
		return 0
	case "-h", "--help", "help":
		printUsageTo(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsageTo(stderr)
		return 1
	}
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `llmstxt - llms.txt generator

Usage:
  llmstxt <command> [options]

Commands:
  generate    Crawl a site and write its llms.txt
  serve       Start the HTTP API
  mcp-server  Start MCP server for AI tool integration
  batch       Generate llms.txt for every configured site
  watch       Regenerate configured sites on a schedule
  validate    Check an llms.txt file or a config file
  version     Show version info

Run 'llmstxt <command> -h' for command-specific help.`)
}

// setupLogger creates a configured logrus.Logger writing to out
func setupLogger(logLevelStr string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", logLevelStr, err)
	}
	log.SetLevel(level)
	return log, nil
}

// loadConfig loads and validates the config file. The default path may be absent.
func loadConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg, warnings, err := config.Load(path, path == defaultConfigPath)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	return appCfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// runnerOptions selects the optional parts of the crawl stack
type runnerOptions struct {
	Cache    bool
	Registry prometheus.Registerer // Crawl metrics are recorded when set
}

// buildRunner assembles transport, crawler and, when enabled, the result cache.
// The returned cleanup closes the cache.
func buildRunner(ctx context.Context, appCfg *config.AppConfig, log *logrus.Logger, opts runnerOptions) (crawler.Runner, func(), error) {
	entry := log.WithField("component", "setup")
	transport := crawler.NewTransport(*appCfg, log)
	go transport.HostPool.RunEviction(ctx, hostIdleInterval)

	var recorder *metrics.Recorder
	if opts.Registry != nil {
		recorder = metrics.NewRecorder(opts.Registry)
	}

	c, err := crawler.NewCrawler(transport.Fetcher, *appCfg, recorder, logrus.NewEntry(log))
	if err != nil {
		return nil, nil, err
	}
	if !opts.Cache {
		return c, func() {}, nil
	}

	dir := appCfg.Cache.Dir
	if dir == "" {
		dir = "./llmstxt_cache"
	}
	store, err := storage.NewBadgerStore(dir, log.WithField("component", "cache"))
	if err != nil {
		return nil, nil, err
	}
	go store.RunGC(ctx, cacheGCInterval)
	entry.Infof("Result cache at %s (%d entries, ttl %v)", dir, store.Count(), appCfg.Cache.TTL)

	cleanup := func() {
		if err := store.Close(); err != nil {
			entry.Errorf("Failed to close cache: %v", err)
		}
	}
	return crawler.NewCachingCrawler(c, store, appCfg.Cache.TTL, logrus.NewEntry(log)), cleanup, nil
}

// splitSiteKeys parses a comma-separated -sites value
func splitSiteKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Debugf("Crawl Config: MaxURLs:%d, Timeout:%v, Concurrency:%d, MaxReqPerHost:%d, DelayPerHost:%v",
		appCfg.Crawl.MaxURLs, appCfg.Crawl.Timeout, appCfg.Crawl.Concurrency, appCfg.Crawl.MaxRequestsPerHost, appCfg.Crawl.DelayPerHost)
	log.Debugf("Crawl Config: SameDomainOnly:%t, IgnoreWWW:%t, SitemapPaths:%d, Exclude:%d",
		appCfg.Crawl.SameDomainOnlyEnabled(), appCfg.Crawl.IgnoreWWWEnabled(), len(appCfg.Crawl.SitemapPaths), len(appCfg.Crawl.ExcludePatterns))
	log.Debugf("HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, MaxRedirects:%d",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns,
		appCfg.HTTPClientSettings.MaxIdleConnsPerHost, appCfg.HTTPClientSettings.MaxRedirects)
	log.Debugf("Output: Dir:%s, StateFile:%s, MaxParallelSites:%d, Cache:%t",
		appCfg.OutputDir, appCfg.StateFile, appCfg.MaxParallelSites, appCfg.Cache.Enabled)
}
