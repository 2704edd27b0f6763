package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware tags each request with the caller's X-Request-ID or a new uuid
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// loggerMiddleware logs one line per request with method, path, status and duration
func loggerMiddleware(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).Round(time.Millisecond).String(),
			"client_ip": c.ClientIP(),
		}
		if id := c.GetString(requestIDKey); id != "" {
			fields[requestIDKey] = id
		}
		if query != "" {
			fields["query"] = query
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
			log.WithFields(fields).Error("HTTP request with errors")
			return
		}
		if strings.HasPrefix(path, "/health") || path == "/metrics" {
			log.WithFields(fields).Debug("HTTP request")
			return
		}
		log.WithFields(fields).Info("HTTP request")
	}
}

// recoveryMiddleware turns a handler panic into a logged 500
func recoveryMiddleware(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"error":  err,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// corsMiddleware answers cross-origin requests from allowedOrigins ("*" allows any).
// With no allowed origins no CORS headers are set.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := allowedOrigin(origin, allowedOrigins)
		if allowed == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowed)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "3600")
		if allowed != "*" {
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func allowedOrigin(origin string, allowedOrigins []string) string {
	if origin == "" {
		return ""
	}
	for _, a := range allowedOrigins {
		if a == "*" {
			return "*"
		}
		if strings.EqualFold(a, origin) {
			return origin
		}
	}
	return ""
}
