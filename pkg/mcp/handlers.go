package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/storage"
)

// handleGenerate handles the generate_llms_txt tool
func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, errResult := s.targetFromRequest(request, false)
	if errResult != nil {
		return errResult, nil
	}

	result, err := s.cfg.Runner.Crawl(ctx, target, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.Stats.PagesFetched == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no pages could be crawled from %s", result.RootURL)), nil
	}

	rendered := crawler.Render(result, s.generatorOptions(request), false)
	return mcp.NewToolResultText(rendered.LLMS), nil
}

// handleStartCrawl handles the start_crawl tool
func (s *Server) handleStartCrawl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, errResult := s.targetFromRequest(request, request.GetBool("full", false))
	if errResult != nil {
		return errResult, nil
	}

	job, created := s.jobManager.CreateJob(storage.ResultKey(target), target.RootURL)
	if !created {
		result := map[string]any{
			"status":  "already_running",
			"message": "A crawl of this URL with the same options is already in progress",
			"job_id":  job.ID,
			"url":     job.URL,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	go s.runCrawlJob(job.ID, target, s.generatorOptions(request))

	result := map[string]any{
		"status":  "started",
		"message": "Crawl started successfully",
		"job_id":  job.ID,
		"url":     job.URL,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJob handles the get_job tool
func (s *Server) handleGetJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := jobSummary(job)
	result["progress"] = job.Progress
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	if out := job.Output; out != nil {
		result["llms_txt"] = out.LLMSTxt
		if out.LLMSFullTxt != "" {
			result["llms_full_txt"] = out.LLMSFullTxt
		}
		result["discovery_mode"] = out.Mode
		result["stats"] = out.Stats
		result["token_count"] = out.TokenCount
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	if _, ok := s.jobManager.GetJob(jobID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	cancelled := s.jobManager.CancelJob(jobID)
	job, _ := s.jobManager.GetJob(jobID)
	result := map[string]any{
		"job_id":    jobID,
		"cancelled": cancelled,
		"status":    job.Status,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleListJobs handles the list_jobs tool
func (s *Server) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs := s.jobManager.ListJobs()
	summaries := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, jobSummary(job))
	}
	result := map[string]any{
		"jobs":       summaries,
		"total_jobs": len(summaries),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runCrawlJob runs a crawl job in the background
func (s *Server) runCrawlJob(jobID string, target models.CrawlTarget, opts generate.Options) {
	jobLog := s.log.WithFields(logrus.Fields{"job_id": jobID, "url": target.RootURL})
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")
	jobCtx := s.jobManager.Context(jobID)

	result, err := s.cfg.Runner.Crawl(jobCtx, target, func(ev models.ProgressEvent) {
		s.jobManager.UpdateProgress(jobID, ev)
	})
	switch {
	case err != nil:
		jobLog.Warnf("Crawl job failed: %v", err)
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, err.Error())
		return
	case errors.Is(jobCtx.Err(), context.Canceled) || result.Partial:
		jobLog.Info("Crawl job cancelled")
		s.jobManager.UpdateStatus(jobID, JobStatusCancelled, "")
		return
	case result.Stats.PagesFetched == 0:
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, fmt.Sprintf("no pages could be crawled from %s", result.RootURL))
		return
	}

	rendered := crawler.Render(result, opts, target.IncludeContent)
	s.jobManager.Complete(jobID, JobOutput{
		LLMSTxt:     rendered.LLMS,
		LLMSFullTxt: rendered.Full,
		Mode:        result.Mode.String(),
		Stats:       result.Stats,
		TokenCount:  rendered.TokenCount,
	})
	jobLog.WithField("pages", result.Stats.PagesFetched).Info("Crawl job completed")
}

// targetFromRequest validates the url argument and applies max_urls defaults and limits
func (s *Server) targetFromRequest(request mcp.CallToolRequest, includeContent bool) (models.CrawlTarget, *mcp.CallToolResult) {
	rawURL := request.GetString("url", "")
	if rawURL == "" {
		return models.CrawlTarget{}, mcp.NewToolResultError("url parameter is required")
	}
	root, err := parse.NormalizeRoot(rawURL)
	if err != nil {
		return models.CrawlTarget{}, mcp.NewToolResultError(err.Error())
	}

	appCfg := s.cfg.AppConfig
	return models.CrawlTarget{
		RootURL:        root.String(),
		MaxURLs:        clampMaxURLs(request.GetInt("max_urls", appCfg.Crawl.MaxURLs), appCfg.Server.MaxURLsLimit),
		Timeout:        appCfg.Crawl.Timeout,
		SameDomainOnly: appCfg.Crawl.SameDomainOnlyEnabled(),
		IncludeContent: includeContent,
	}, nil
}

// generatorOptions applies the flat and include_descriptions arguments over the configured generator
func (s *Server) generatorOptions(request mcp.CallToolRequest) generate.Options {
	gen := s.cfg.AppConfig.Generator
	args := request.GetArguments()
	if _, ok := args["flat"]; ok {
		group := !request.GetBool("flat", false)
		gen.GroupByPath = &group
	}
	if _, ok := args["include_descriptions"]; ok {
		include := request.GetBool("include_descriptions", true)
		gen.IncludeDescriptions = &include
	}
	return generate.OptionsFromConfig(gen)
}

// clampMaxURLs keeps n within [1, limit]
func clampMaxURLs(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

func jobSummary(job Job) map[string]any {
	summary := map[string]any{
		"job_id":     job.ID,
		"url":        job.URL,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
	}
	if !job.CompletedAt.IsZero() {
		summary["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		summary["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	return summary
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
