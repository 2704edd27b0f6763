package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
)

const (
	serverName    = "llmstxt"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig *config.AppConfig
	Runner    crawler.Runner // Usually a CachingCrawler around a Crawler
	Transport string         // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server exposes llms.txt generation as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("Runner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
	}
	if cfg.Transport == "sse" {
		s.sseServer = server.NewSSEServer(mcpServer)
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	maxURLsDesc := fmt.Sprintf("Maximum number of pages to include (default %d, max %d)",
		s.cfg.AppConfig.Crawl.MaxURLs, s.cfg.AppConfig.Server.MaxURLsLimit)

	generateTool := mcp.NewTool("generate_llms_txt",
		mcp.WithDescription("Crawl a website and return a generated llms.txt. Blocks until the crawl finishes."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Root URL of the site, e.g. https://docs.example.com"),
		),
		mcp.WithNumber("max_urls", mcp.Description(maxURLsDesc)),
		mcp.WithBoolean("flat", mcp.Description("List pages in one section instead of grouping by path")),
		mcp.WithBoolean("include_descriptions", mcp.Description("Append page descriptions to links (default true)")),
	)
	s.mcpServer.AddTool(generateTool, s.handleGenerate)

	startTool := mcp.NewTool("start_crawl",
		mcp.WithDescription("Start a background crawl. Returns immediately with a job ID for get_job."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Root URL of the site"),
		),
		mcp.WithNumber("max_urls", mcp.Description(maxURLsDesc)),
		mcp.WithBoolean("full", mcp.Description("Also extract page content and produce llms-full.txt")),
		mcp.WithBoolean("flat", mcp.Description("List pages in one section instead of grouping by path")),
	)
	s.mcpServer.AddTool(startTool, s.handleStartCrawl)

	getJobTool := mcp.NewTool("get_job",
		mcp.WithDescription("Get the status and progress of a crawl job, and its llms.txt once completed"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by start_crawl"),
		),
	)
	s.mcpServer.AddTool(getJobTool, s.handleGetJob)

	cancelTool := mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a pending or running crawl job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by start_crawl"),
		),
	)
	s.mcpServer.AddTool(cancelTool, s.handleCancelJob)

	listTool := mcp.NewTool("list_jobs",
		mcp.WithDescription("List crawl jobs started in this session"),
	)
	s.mcpServer.AddTool(listTool, s.handleListJobs)

	s.log.Infof("Registered %d MCP tools", 5)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio", "":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		if err := s.sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running jobs and stops the SSE listener if one was started
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
