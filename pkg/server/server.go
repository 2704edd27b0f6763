// Package server exposes llms.txt generation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/crawler"
)

const shutdownTimeout = 10 * time.Second

// Config holds the dependencies of the HTTP server
type Config struct {
	AppConfig *config.AppConfig
	Runner    crawler.Runner
	Logger    *logrus.Logger
	Gatherer  prometheus.Gatherer // Served on /metrics; prometheus.DefaultGatherer when nil
	Debug     bool                // gin debug mode
}

// Server is the HTTP API
type Server struct {
	cfg    Config
	router *gin.Engine
	http   *http.Server
	log    *logrus.Entry
}

// New builds the router and the http.Server for cfg
func New(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, errors.New("server: AppConfig is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("server: Runner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg: cfg,
		log: cfg.Logger.WithField("component", "http"),
	}

	router := gin.New()
	router.Use(recoveryMiddleware(s.log))
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(s.log))
	router.Use(corsMiddleware(cfg.AppConfig.Server.AllowedOrigins))

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	router.POST("/generate", s.handleGenerate)
	router.GET("/llms.txt", s.handleLLMSTxt)
	s.router = router

	s.http = &http.Server{
		Addr:              cfg.AppConfig.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Crawls answer synchronously, so writes may take up to the request timeout
		WriteTimeout: cfg.AppConfig.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
