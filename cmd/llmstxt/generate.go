package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
)

const previewLines = 20

// generateFlags holds the parsed flags of the generate subcommand
type generateFlags struct {
	url            string
	maxURLs        int
	output         string
	timeout        time.Duration
	concurrency    int
	noDescriptions bool
	flat           bool
	full           bool
	tree           bool
	metadata       bool
	cache          bool
	configFile     string
	logLevel       string
}

func parseGenerateFlags(args []string, stderr io.Writer) (*generateFlags, error) {
	f := &generateFlags{}
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&f.maxURLs, "max-urls", 0, "Maximum pages to include (default from config, 20)")
	fs.IntVar(&f.maxURLs, "m", 0, "Shorthand for -max-urls")
	fs.StringVar(&f.output, "output", "llms.txt", "Output file, '-' for stdout")
	fs.StringVar(&f.output, "o", "llms.txt", "Shorthand for -output")
	fs.DurationVar(&f.timeout, "timeout", 0, "Timeout per network operation (default from config, 10s)")
	fs.DurationVar(&f.timeout, "t", 0, "Shorthand for -timeout")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Page fetch workers (default from config)")
	fs.BoolVar(&f.noDescriptions, "no-descriptions", false, "Omit page descriptions")
	fs.BoolVar(&f.flat, "flat", false, "List pages without grouping by section")
	fs.BoolVar(&f.full, "full", false, "Also write llms-full.txt with page content")
	fs.BoolVar(&f.tree, "tree", false, "Also write site_tree.txt")
	fs.BoolVar(&f.metadata, "metadata", false, "Also write crawl_metadata.yaml")
	fs.BoolVar(&f.cache, "cache", false, "Use the crawl result cache")
	fs.StringVar(&f.configFile, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&f.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: llmstxt generate <url> [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  llmstxt generate https://docs.example.com\n")
		fmt.Fprintf(stderr, "  llmstxt generate docs.example.com -m 50 -full -o out/llms.txt\n")
		fmt.Fprintf(stderr, "  llmstxt generate https://example.com -flat -o -\n")
	}

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one URL, got %d", len(positional))
	}
	f.url = positional[0]
	return f, nil
}

// parseInterspersed parses flags that may appear before or after positional arguments
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// doGenerate crawls one site and writes its llms.txt.
// Returns exit code (0 = success, 1 = error).
func doGenerate(args []string, stdout, stderr io.Writer) int {
	f, err := parseGenerateFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log, err := setupLogger(f.logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	appCfg, err := loadConfig(f.configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if f.concurrency > 0 {
		appCfg.Crawl.Concurrency = f.concurrency
	}
	logAppConfig(appCfg, log)

	root, err := parse.NormalizeRoot(f.url)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signalContext(log)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, appCfg, log, runnerOptions{Cache: f.cache || appCfg.Cache.Enabled})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	target := models.CrawlTarget{
		RootURL:        root.String(),
		MaxURLs:        f.maxURLs,
		Timeout:        f.timeout,
		SameDomainOnly: appCfg.Crawl.SameDomainOnlyEnabled(),
		IncludeContent: f.full,
	}
	if target.MaxURLs <= 0 {
		target.MaxURLs = appCfg.Crawl.MaxURLs
	}

	start := time.Now()
	result, err := runner.Crawl(ctx, target, func(ev models.ProgressEvent) {
		if ev.Message != "" {
			log.WithField("stage", ev.Stage).Debug(ev.Message)
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if result.Partial {
		log.Warnf("Crawl interrupted, %d pages fetched before stopping", result.Stats.PagesFetched)
	}
	if result.Stats.PagesFetched == 0 {
		fmt.Fprintf(stderr, "Error: no pages could be crawled from %s\n", result.RootURL)
		return 1
	}

	genCfg := appCfg.Generator
	if f.flat {
		off := false
		genCfg.GroupByPath = &off
	}
	if f.noDescriptions {
		off := false
		genCfg.IncludeDescriptions = &off
	}
	rendered := crawler.Render(result, generate.OptionsFromConfig(genCfg), f.full)

	summaryOut := stdout
	if f.output == "-" {
		if _, err := io.WriteString(stdout, rendered.LLMS); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		summaryOut = stderr
		if f.full || f.tree || f.metadata {
			log.Warn("-full, -tree and -metadata need a file output, skipping them")
		}
	} else {
		om := crawler.NewOutputManager(logrus.NewEntry(log), crawler.OutputOptions{
			Dir:          filepath.Dir(f.output),
			LLMSFilename: filepath.Base(f.output),
			Full:         f.full,
			Metadata:     f.metadata,
			Tree:         f.tree,
		})
		files, err := om.Write(result, rendered)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		printWritten(stdout, files)
	}

	printSummary(summaryOut, result, rendered, time.Since(start))
	if f.output != "-" {
		printPreview(stdout, rendered.LLMS)
	}
	return 0
}

func printWritten(w io.Writer, files *crawler.OutputFiles) {
	fmt.Fprintf(w, "Wrote %s\n", files.LLMSPath)
	for _, p := range []string{files.FullPath, files.TreePath, files.MetadataPath} {
		if p != "" {
			fmt.Fprintf(w, "Wrote %s\n", p)
		}
	}
}

func printSummary(w io.Writer, result *models.CrawlResult, rendered crawler.Rendered, elapsed time.Duration) {
	fmt.Fprintf(w, "\nSource:     %s\n", result.RootURL)
	fmt.Fprintf(w, "Discovery:  %s (%d URLs)\n", result.Mode, result.Stats.URLsDiscovered)
	fmt.Fprintf(w, "Pages:      %d fetched, %d failed\n", result.Stats.PagesFetched, result.Stats.PagesFailed)
	fmt.Fprintf(w, "Tokens:     %d\n", rendered.TokenCount)
	fmt.Fprintf(w, "Time:       %v\n", elapsed.Round(time.Millisecond))
}

func printPreview(w io.Writer, content string) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	fmt.Fprintf(w, "\nPreview:\n%s\n", strings.Repeat("-", 40))
	for i, line := range lines {
		if i == previewLines {
			fmt.Fprintf(w, "... (%d more lines)\n", len(lines)-previewLines)
			break
		}
		fmt.Fprintln(w, line)
	}
}
