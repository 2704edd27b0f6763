package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/mcp"
	"github.com/freellmstxt/llmstxt/pkg/server"
)

// doServe runs the HTTP API until interrupted.
// Returns exit code (0 = success, 1 = error).
func doServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	addr := fs.String("addr", "", "Listen address (default from config, :8000)")
	cache := fs.Bool("cache", false, "Use the crawl result cache (also enabled by cache.enabled)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")
	logJSON := fs.Bool("logjson", false, "Log in JSON format")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: llmstxt serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEndpoints:\n")
		fmt.Fprintf(stderr, "  POST /generate   url, max_urls, full (form or JSON)\n")
		fmt.Fprintf(stderr, "  GET  /llms.txt   ?url=&max_urls=\n")
		fmt.Fprintf(stderr, "  GET  /health\n")
		fmt.Fprintf(stderr, "  GET  /metrics\n")
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
	if *logJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	appCfg, err := loadConfig(*configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *addr != "" {
		appCfg.Server.ListenAddr = *addr
	}
	logAppConfig(appCfg, log)

	ctx, stop := signalContext(log)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	runner, cleanup, err := buildRunner(ctx, appCfg, log, runnerOptions{Cache: *cache || appCfg.Cache.Enabled, Registry: reg})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	srv, err := server.New(server.Config{
		AppConfig: appCfg,
		Runner:    runner,
		Logger:    log,
		Gatherer:  reg,
		Debug:     log.IsLevelEnabled(logrus.DebugLevel),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating server: %v\n", err)
		return 1
	}

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// doMcpServer runs the MCP server until its transport closes or the process is interrupted.
// Returns exit code (0 = success, 1 = error).
func doMcpServer(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcp-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	cache := fs.Bool("cache", false, "Use the crawl result cache (also enabled by cache.enabled)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: llmstxt mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  # Start with stdio transport
  llmstxt mcp-server

  # Start with SSE transport on port 8080
  llmstxt mcp-server -transport sse -port 8080

Available MCP Tools:
  generate_llms_txt  Crawl a site and return its llms.txt
  start_crawl        Start a background crawl job
  get_job            Get job status and, once done, its llms.txt
  cancel_job         Cancel a running job
  list_jobs          List all jobs
`)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *transport != "stdio" && *transport != "sse" {
		fmt.Fprintf(stderr, "Error: unsupported transport '%s' (use stdio or sse)\n", *transport)
		return 1
	}

	// MCP protocol uses stdout, logs go to stderr
	log, err := setupLogger(*logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	appCfg, err := loadConfig(*configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	ctx, stop := signalContext(log)
	defer stop()

	runner, cleanup, err := buildRunner(ctx, appCfg, log, runnerOptions{Cache: *cache || appCfg.Cache.Enabled})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	srv, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig: appCfg,
		Runner:    runner,
		Transport: *transport,
		Port:      *port,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("MCP server shutdown error: %v", err)
		}
	}()

	log.Infof("Starting MCP server (transport: %s)", *transport)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
