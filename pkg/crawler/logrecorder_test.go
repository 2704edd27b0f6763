package crawler

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogRecorder(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	rec := NewLogRecorder(logrus.InfoLevel, 2)
	logger.AddHook(rec)

	logger.Debug("hidden")
	logger.WithField("url", "https://example.com/").Info("Crawl started")
	logger.Warn("Slow page")
	logger.Error("Dropped")

	assert.Equal(t, []string{
		"[INFO] Crawl started (https://example.com/)",
		"[WARNING] Slow page",
		"[INFO] 1 more log lines omitted",
	}, rec.Lines())
}
