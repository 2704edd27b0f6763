package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/crawler"
	"github.com/freellmstxt/llmstxt/pkg/generate"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/parse"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

const maxResponseLogLines = 200

// generateRequest is the body of POST /generate, as a form or JSON
type generateRequest struct {
	URL     string `form:"url" json:"url"`
	MaxURLs int    `form:"max_urls" json:"max_urls"`
	Full    bool   `form:"full" json:"full"`
}

// generateStats is the stats object of a /generate response
type generateStats struct {
	PagesCrawled   int                  `json:"pages_crawled"`
	PagesFailed    int                  `json:"pages_failed"`
	URLsDiscovered int                  `json:"urls_discovered"`
	DiscoveryMode  models.DiscoveryMode `json:"discovery_mode"`
	SourceURL      string               `json:"source_url"`
	TokenCount     int                  `json:"token_count"`
}

type generateResponse struct {
	Success     bool           `json:"success"`
	LLMSTxt     string         `json:"llms_txt,omitempty"`
	LLMSFullTxt string         `json:"llms_full_txt,omitempty"`
	Stats       *generateStats `json:"stats,omitempty"`
	Error       string         `json:"error,omitempty"`
	Logs        []string       `json:"logs"`
}

// crawlOutcome is what a handler needs from one crawl
type crawlOutcome struct {
	result   *models.CrawlResult
	rendered crawler.Rendered
	status   int // Non-zero on failure
	err      error
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGenerate crawls the requested site and returns llms.txt with stats and crawl logs
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, generateResponse{Error: fmt.Sprintf("invalid request: %v", err), Logs: []string{}})
		return
	}

	recorder := crawler.NewLogRecorder(logrus.InfoLevel, maxResponseLogLines)
	out := s.crawl(c.Request.Context(), req.URL, req.MaxURLs, req.Full, recorder)
	if out.status != 0 {
		status := out.status
		switch status {
		case http.StatusUnprocessableEntity:
			status = http.StatusBadRequest
		case http.StatusInternalServerError:
			_ = c.Error(out.err)
		}
		c.JSON(status, generateResponse{Error: out.err.Error(), Logs: recorder.Lines()})
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Success:     true,
		LLMSTxt:     out.rendered.LLMS,
		LLMSFullTxt: out.rendered.Full,
		Stats: &generateStats{
			PagesCrawled:   out.result.Stats.PagesFetched,
			PagesFailed:    out.result.Stats.PagesFailed,
			URLsDiscovered: out.result.Stats.URLsDiscovered,
			DiscoveryMode:  out.result.Mode,
			SourceURL:      out.result.RootURL,
			TokenCount:     out.rendered.TokenCount,
		},
		Logs: recorder.Lines(),
	})
}

// handleLLMSTxt returns the generated llms.txt as plain text
func (s *Server) handleLLMSTxt(c *gin.Context) {
	maxURLs := 0
	if raw := c.Query("max_urls"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid max_urls: %s\n", raw)
			return
		}
		maxURLs = n
	}

	out := s.crawl(c.Request.Context(), c.Query("url"), maxURLs, false, nil)
	if out.status != 0 {
		status := out.status
		if status == http.StatusUnprocessableEntity {
			status = http.StatusNotFound
		}
		if status == http.StatusInternalServerError {
			_ = c.Error(out.err)
		}
		c.String(status, "%s\n", out.err.Error())
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out.rendered.LLMS))
}

// crawl validates the target, runs it within the request timeout and renders the result.
// A crawl that fetched nothing reports StatusUnprocessableEntity so callers can map it.
func (s *Server) crawl(ctx context.Context, rawURL string, maxURLs int, full bool, recorder *crawler.LogRecorder) crawlOutcome {
	reqLog := s.requestLogger(recorder).WithField("url", rawURL)

	if strings.TrimSpace(rawURL) == "" {
		return crawlOutcome{status: http.StatusBadRequest, err: errors.New("url is required")}
	}
	root, err := parse.NormalizeRoot(rawURL)
	if err != nil {
		reqLog.Warnf("Rejected target: %v", err)
		return crawlOutcome{status: http.StatusBadRequest, err: err}
	}

	appCfg := s.cfg.AppConfig
	if maxURLs == 0 {
		maxURLs = appCfg.Crawl.MaxURLs
	}
	target := models.CrawlTarget{
		RootURL:        root.String(),
		MaxURLs:        clampMaxURLs(maxURLs, appCfg.Server.MaxURLsLimit),
		Timeout:        appCfg.Crawl.Timeout,
		SameDomainOnly: appCfg.Crawl.SameDomainOnlyEnabled(),
		IncludeContent: full,
	}

	ctx, cancel := context.WithTimeout(ctx, appCfg.Server.RequestTimeout)
	defer cancel()

	reqLog.Infof("Crawling %s (max %d URLs)", target.RootURL, target.MaxURLs)
	result, err := s.cfg.Runner.Crawl(ctx, target, func(ev models.ProgressEvent) {
		if ev.Message != "" && (ev.Stage == models.StageDiscovering || ev.Message == "cached") {
			reqLog.Info(ev.Message)
		}
	})
	if err != nil {
		if errors.Is(err, utils.ErrInvalidTarget) {
			reqLog.Warnf("Rejected target: %v", err)
			return crawlOutcome{status: http.StatusBadRequest, err: err}
		}
		reqLog.Errorf("Crawl failed: %v", err)
		return crawlOutcome{status: http.StatusInternalServerError, err: err}
	}

	if result.Partial {
		reqLog.Warnf("Crawl stopped early, %d pages fetched", result.Stats.PagesFetched)
	}
	reqLog.Infof("Discovery mode: %s, %d URLs discovered", result.Mode, result.Stats.URLsDiscovered)
	for _, p := range result.Pages {
		if !p.OK() {
			reqLog.WithField("url", p.URL).Warnf("Fetch failed: %s", p.FetchError)
		}
	}

	if result.Stats.PagesFetched == 0 {
		err := fmt.Errorf("no pages could be crawled from %s", result.RootURL)
		reqLog.Error(err)
		return crawlOutcome{result: result, status: http.StatusUnprocessableEntity, err: err}
	}

	rendered := crawler.Render(result, generate.OptionsFromConfig(appCfg.Generator), full)
	reqLog.Infof("Generated llms.txt from %d pages (%d tokens)", result.Stats.PagesFetched, rendered.TokenCount)
	return crawlOutcome{result: result, rendered: rendered}
}

// requestLogger returns a logger that writes to the server log and, when recorder is set,
// to the per-request buffer returned to the client
func (s *Server) requestLogger(recorder *crawler.LogRecorder) *logrus.Entry {
	if recorder == nil {
		return s.log
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	level := s.cfg.Logger.GetLevel()
	if level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.AddHook(recorder)
	logger.AddHook(forwardHook{to: s.log})
	return logrus.NewEntry(logger).WithField("component", "http")
}

// forwardHook re-logs entries on another logger
type forwardHook struct {
	to *logrus.Entry
}

func (h forwardHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h forwardHook) Fire(entry *logrus.Entry) error {
	h.to.WithFields(entry.Data).Log(entry.Level, entry.Message)
	return nil
}

// clampMaxURLs bounds a requested URL count to [1, limit]
func clampMaxURLs(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
