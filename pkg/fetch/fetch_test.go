package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/config"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testFetcher(opts Options) *Fetcher {
	cfg := config.Default().HTTPClientSettings
	return NewFetcher(NewClient(cfg, testLogger().Logger), opts, testLogger())
}

func TestFetcher_Get_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><title>Hi</title></html>")
	}))
	defer server.Close()

	f := testFetcher(Options{UserAgent: "test-agent/1.0"})
	resp, err := f.Get(context.Background(), server.URL+"/page")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><title>Hi</title></html>", string(resp.Body))
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	assert.Equal(t, server.URL+"/page", resp.FinalURL.String())
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestFetcher_Get_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "moved")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := testFetcher(Options{}).Get(context.Background(), server.URL+"/old")

	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new/", resp.FinalURL.String())
	assert.Equal(t, "moved", string(resp.Body))
}

func TestFetcher_Get_StatusErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantSentinel error
		wantCategory string
	}{
		{"NotFound", http.StatusNotFound, utils.ErrClientHTTPError, "HTTP_404"},
		{"Forbidden", http.StatusForbidden, utils.ErrClientHTTPError, "HTTP_403"},
		{"TooManyRequests", http.StatusTooManyRequests, utils.ErrClientHTTPError, "HTTP_429"},
		{"ServerError", http.StatusInternalServerError, utils.ErrServerHTTPError, "HTTP_5xx"},
		{"BadGateway", http.StatusBadGateway, utils.ErrServerHTTPError, "HTTP_5xx"},
		{"NotModified", http.StatusNotModified, utils.ErrOtherHTTPError, "HTTP_OtherStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			resp, err := testFetcher(Options{}).Get(context.Background(), server.URL)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantSentinel), "error %v should wrap %v", err, tt.wantSentinel)
			assert.Equal(t, tt.wantCategory, utils.CategorizeError(err))
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load(), "no retries")
		})
	}
}

func TestFetcher_Get_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 4096))
	}))
	defer server.Close()

	resp, err := testFetcher(Options{MaxBodyBytes: 100}).Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Len(t, resp.Body, 100)
}

func TestFetcher_Get_InvalidURL(t *testing.T) {
	_, err := testFetcher(Options{}).Get(context.Background(), "http://[::1")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrRequestCreation)
}

func TestFetcher_Get_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := testFetcher(Options{}).Get(context.Background(), addr)

	require.Error(t, err)
	assert.True(t, utils.IsNetworkCategory(utils.CategorizeError(err)), "category %s", utils.CategorizeError(err))
}

func TestWithTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	getter := WithTimeout(testFetcher(Options{}), 50*time.Millisecond)

	start := time.Now()
	_, err := getter.Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "Network_Timeout", utils.CategorizeError(err))
}

func TestWithTimeout_NonPositivePassesThrough(t *testing.T) {
	inner := GetterFunc(func(ctx context.Context, rawURL string) (*Response, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return &Response{StatusCode: 200}, nil
	})

	resp, err := WithTimeout(inner, 0).Get(context.Background(), "http://example.test")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestFetcher_Get_HostPoolBoundsConcurrency(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer server.Close()

	pool := NewHostSemaphorePool(2, testLogger())
	f := testFetcher(Options{HostPool: pool})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Get(context.Background(), server.URL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Equal(t, 1, pool.Len())
}

func TestFetcher_Get_CancelledWhileWaitingForHost(t *testing.T) {
	pool := NewHostSemaphorePool(1, testLogger())
	require.NoError(t, pool.Acquire(context.Background(), "blocked.test"))
	defer pool.Release("blocked.test")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testFetcher(Options{HostPool: pool}).Get(ctx, "http://blocked.test/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
