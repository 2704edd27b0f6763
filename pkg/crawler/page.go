package crawler

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/fetch"
	"github.com/freellmstxt/llmstxt/pkg/metrics"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/process"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

// PageFetcher downloads one page and extracts its PageInfo
type PageFetcher struct {
	getter    fetch.Getter
	meta      process.MetadataOptions
	converter *process.ContentConverter // nil unless full content is wanted
	recorder  *metrics.Recorder
	log       *logrus.Entry
}

// NewPageFetcher creates a PageFetcher. converter may be nil.
func NewPageFetcher(getter fetch.Getter, meta process.MetadataOptions, converter *process.ContentConverter, recorder *metrics.Recorder, log *logrus.Entry) *PageFetcher {
	return &PageFetcher{
		getter:    getter,
		meta:      meta,
		converter: converter,
		recorder:  recorder,
		log:       log.WithField("component", "page_fetcher"),
	}
}

// Fetch never returns an error: failures are reported in PageInfo.FetchError
// as "<category>: <detail>", and every other field is left empty.
func (pf *PageFetcher) Fetch(ctx context.Context, rawURL string) (page models.PageInfo) {
	startTime := time.Now()
	taskLog := pf.log.WithField("url", rawURL)
	var taskErr error

	defer func() {
		if r := recover(); r != nil {
			taskErr = fmt.Errorf("panic: %v", r)
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in page fetch")
		}

		result := "ok"
		logFields := logrus.Fields{"duration": time.Since(startTime).String()}
		if taskErr != nil {
			result = utils.CategorizeError(taskErr)
			page = models.PageInfo{URL: rawURL, FetchError: fmt.Sprintf("%s: %v", result, taskErr)}
			logFields["category"] = result
			if utils.IsNetworkCategory(result) {
				taskLog.WithFields(logFields).Warnf("Page fetch failed: %v", taskErr)
			} else {
				taskLog.WithFields(logFields).Infof("Page skipped: %v", taskErr)
			}
		} else {
			if page.Title != "" {
				logFields["page_title"] = page.Title
			}
			taskLog.WithFields(logFields).Debug("Page fetched")
		}
		pf.recorder.PageFetched(result, time.Since(startTime))
	}()

	page, taskErr = pf.fetch(ctx, rawURL, taskLog)
	return page
}

func (pf *PageFetcher) fetch(ctx context.Context, rawURL string, taskLog *logrus.Entry) (models.PageInfo, error) {
	page := models.PageInfo{URL: rawURL}

	resp, err := pf.getter.Get(ctx, rawURL)
	if err != nil {
		return page, err
	}
	if !isHTML(resp.ContentType) {
		taskLog.WithField("content_type", resp.ContentType).Debug("Not HTML, keeping URL only")
		return page, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return page, fmt.Errorf("%w: HTML: %v", utils.ErrParsing, err)
	}

	pageURL := resp.FinalURL
	meta := process.ExtractMetadata(doc, pageURL, pf.meta)
	page.Title = meta.Title
	page.Description = meta.Description
	page.ContentPreview = meta.Preview

	if pf.converter != nil && pageURL != nil {
		content, err := pf.converter.Convert(doc, pageURL)
		if err != nil {
			// Metadata is still useful without the body
			taskLog.Debugf("Content extraction failed: %v", err)
		} else {
			page.Content = content.Markdown
			page.TokenCount = content.TokenCount
		}
	}
	return page, nil
}

// isHTML accepts HTML media types. A missing Content-Type is treated as HTML.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
