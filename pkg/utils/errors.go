package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidTarget      = errors.New("invalid crawl target")        // Empty, unparseable or non-http(s) root URL
	ErrClientHTTPError    = errors.New("client HTTP error (4xx)")     // Wraps original error/status
	ErrServerHTTPError    = errors.New("server HTTP error (5xx)")     // Wraps original error/status
	ErrOtherHTTPError     = errors.New("other HTTP error (non-2xx)")  // Wraps original error/status
	ErrParsing            = errors.New("parsing error")               // Wraps specific parsing error (HTML, URL, XML)
	ErrUnsupportedContent = errors.New("unsupported content type")    // Body is not HTML/XML where one was expected
	ErrFilesystem         = errors.New("filesystem error")            // Wraps os errors
	ErrDatabase           = errors.New("database error")              // Wraps badger errors
	ErrCacheMiss          = errors.New("cache miss")                  // Key absent or expired
	ErrRequestCreation    = errors.New("failed to create HTTP request")
	ErrResponseBodyRead   = errors.New("failed to read response body")
	ErrMarkdownConversion = errors.New("failed to convert HTML to markdown")
	ErrConfigValidation   = errors.New("configuration validation error")
)

// WrapErrorf prefixes err with a formatted message, keeping it matchable with errors.Is.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrInvalidTarget):
		return "Input_InvalidTarget"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 401 ") {
			return "HTTP_401"
		}
		if strings.Contains(errMsg, " 410 ") {
			return "HTTP_410"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx" // Generic 4xx
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "XML") {
			return "Content_ParsingXML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrUnsupportedContent):
		return "Content_Unsupported"
	case errors.Is(err, ErrMarkdownConversion):
		return "Content_Markdown"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrCacheMiss):
		return "Cache_Miss"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		if errors.Is(err, context.DeadlineExceeded) {
			return "Network_Timeout"
		}
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Network_Timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}
	if strings.Contains(lowerErrMsg, "redirects") {
		return "Network_TooManyRedirects"
	}

	return "Unknown"
}

// IsNetworkCategory reports whether a category returned by CategorizeError
// describes a transport-level failure rather than an HTTP or content problem.
func IsNetworkCategory(category string) bool {
	return strings.HasPrefix(category, "Network_")
}
