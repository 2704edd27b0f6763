package fetch

import (
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/config"
)

// NewClient creates the shared HTTP client from the configured transport settings.
// Redirects are followed up to cfg.MaxRedirects hops.
func NewClient(cfg config.HTTPClientConfig, log *logrus.Logger) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout,
		KeepAlive: cfg.DialerKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout:  cfg.ExpectContinueTimeout,
		MaxResponseHeaderBytes: 1 << 20,
	}
	if cfg.ForceAttemptHTTP2 != nil {
		transport.ForceAttemptHTTP2 = *cfg.ForceAttemptHTTP2
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			log.WithFields(logrus.Fields{
				"from": via[len(via)-1].URL.String(),
				"to":   req.URL.String(),
				"hop":  len(via),
			}).Debug("Following redirect")
			return nil
		},
	}
	log.WithFields(logrus.Fields{
		"timeout":       cfg.Timeout,
		"max_redirects": maxRedirects,
	}).Debug("HTTP client initialized")
	return client
}
