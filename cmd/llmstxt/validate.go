package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/orchestrate"
	"github.com/freellmstxt/llmstxt/pkg/watch"
)

// doValidate lints an llms.txt file, or checks a config file with -config.
// Returns exit code (0 = valid, 1 = errors found).
func doValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "Validate this config file instead of an llms.txt file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: llmstxt validate <llms.txt>\n       llmstxt validate -config <config.yaml>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *configFile != "" {
		return validateConfigFile(*configFile, stdout, stderr)
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}
	return validateLLMSFile(positional[0], stdout, stderr)
}

// validateLLMSFile prints lint findings for an llms.txt file
func validateLLMSFile(path string, stdout, stderr io.Writer) int {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	issues := generate.Validate(content)
	errorCount := 0
	for _, issue := range issues {
		if issue.Severity == generate.SeverityError {
			errorCount++
			fmt.Fprintf(stderr, "%s: %s\n", path, issue)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s\n", path, issue)
	}

	if errorCount > 0 {
		fmt.Fprintf(stderr, "\n%s is not a valid llms.txt (%d errors, %d warnings)\n", path, errorCount, len(issues)-errorCount)
		return 1
	}
	fmt.Fprintf(stdout, "OK: %s (%d warnings)\n", path, len(issues))
	return 0
}

// validateConfigFile loads a config file and reports warnings and per-site status
func validateConfigFile(path string, stdout, stderr io.Writer) int {
	appCfg, warnings, err := config.Load(path, false)
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	for _, key := range orchestrate.GetAllSiteKeys(appCfg) {
		site := appCfg.Sites[key]
		fmt.Fprintf(stdout, "OK: [%s] %s (max %d URLs, every %s)\n",
			key, site.URL, config.GetEffectiveMaxURLs(site, *appCfg), watch.FormatInterval(site.Interval))
	}
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
