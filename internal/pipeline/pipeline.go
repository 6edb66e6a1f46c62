// Package pipeline runs the batch stages that move pages through the
// store: persisting discovered URLs, extraction with purging, and
// classification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/ratelimit"
	"github.com/masahif/campuscrawl/internal/search"
)

// Run metadata keys.
const (
	MetaLastExtractRun  = "last_extract_run"
	MetaLastExtractAt   = "last_extract_at"
	MetaLastClassifyRun = "last_classify_run"
	MetaLastClassifyAt  = "last_classify_at"
	MetaLastSaveAt      = "last_save_at"
)

// ContentExtractor turns a page URL into structured content.
type ContentExtractor interface {
	Extract(ctx context.Context, rawURL string) (*model.StructuredContent, error)
}

// PageClassifier classifies one stored page.
type PageClassifier interface {
	Classify(ctx context.Context, pageID int64) (*model.Classification, error)
}

// Options configures the batch pacing.
type Options struct {
	ExtractDelay  time.Duration
	ClassifyDelay time.Duration
}

// Pipeline wires the store to the extraction and classification stages.
type Pipeline struct {
	store      model.Store
	extractor  ContentExtractor
	classifier PageClassifier
	opts       Options
	now        func() time.Time
}

// New creates a pipeline. extractor and classifier may be nil when the
// corresponding batch is not used.
func New(store model.Store, extractor ContentExtractor, classifier PageClassifier, opts Options) *Pipeline {
	return &Pipeline{
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		opts:       opts,
		now:        time.Now,
	}
}

// ItemError records why one item of a batch failed.
type ItemError struct {
	PageID int64
	URL    string
	Reason string
}

// SaveReport summarises a persistence run.
type SaveReport struct {
	Saved    int
	Existing int
	Failed   int
}

// ExtractReport summarises an extraction batch.
type ExtractReport struct {
	RunID     string
	Processed int
	Extracted int
	Purged    int
	Errors    []ItemError
	Duration  time.Duration
}

// ClassifyReport summarises a classification batch.
type ClassifyReport struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Errors    []ItemError
	Duration  time.Duration
}

// Rate limiter keys, one per batch stage.
const (
	stageExtract  = "extract"
	stageClassify = "classify"
)

// SaveDiscovered stores every URL not already present as an empty page
// waiting for extraction.
func (p *Pipeline) SaveDiscovered(ctx context.Context, urls []string) (*SaveReport, error) {
	report := &SaveReport{}
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		saved, err := p.saveNew(ctx, &model.PageRecord{
			URL:    u,
			Title:  titleFromURL(u),
			Source: hostname(u),
		})
		switch {
		case err != nil:
			slog.Warn("Failed to save discovered URL", "url", u, "error", err)
			report.Failed++
		case saved:
			report.Saved++
		default:
			report.Existing++
		}
	}
	p.touch(ctx, MetaLastSaveAt)

	slog.Info("Saved discovered URLs", "saved", report.Saved, "existing", report.Existing, "failed", report.Failed)
	return report, nil
}

// SaveIngested stores search pages with their fetched content. Pages
// already in the store are left alone.
func (p *Pipeline) SaveIngested(ctx context.Context, pages []search.Page) (*SaveReport, error) {
	report := &SaveReport{}
	for _, sp := range pages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		source := sp.Source
		if source == "" {
			source = hostname(sp.URL)
		}
		saved, err := p.saveNew(ctx, &model.PageRecord{
			URL:        sp.URL,
			Title:      sp.Title,
			RawContent: sp.Content,
			Source:     source,
		})
		switch {
		case err != nil:
			slog.Warn("Failed to save search page", "url", sp.URL, "error", err)
			report.Failed++
		case saved:
			report.Saved++
		default:
			report.Existing++
		}
	}
	p.touch(ctx, MetaLastSaveAt)

	slog.Info("Saved search pages", "saved", report.Saved, "existing", report.Existing, "failed", report.Failed)
	return report, nil
}

func (p *Pipeline) saveNew(ctx context.Context, page *model.PageRecord) (bool, error) {
	_, err := p.store.FindPage(ctx, page.URL)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}
	if err := p.store.UpsertPage(ctx, page); err != nil {
		return false, err
	}
	return true, nil
}

// ExtractPending extracts up to limit pages that have no structured
// content yet. A page whose extraction fails or yields nothing is
// removed from the store together with its structured content.
func (p *Pipeline) ExtractPending(ctx context.Context, limit int) (*ExtractReport, error) {
	if p.extractor == nil {
		return nil, errors.New("pipeline has no extractor")
	}

	start := p.now()
	report := &ExtractReport{RunID: uuid.NewString()}

	pages, err := p.store.ListUnextractedPages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unextracted pages: %w", err)
	}
	slog.Info("Starting extraction", "run_id", report.RunID, "pages", len(pages))

	limiter := ratelimit.NewRateLimiter(p.opts.ExtractDelay)
	for i := range pages {
		if err := limiter.Wait(ctx, stageExtract); err != nil {
			report.Duration = p.now().Sub(start)
			return report, err
		}

		err := p.extractOne(ctx, report, &pages[i])
		limiter.Done(stageExtract)
		if err != nil {
			report.Duration = p.now().Sub(start)
			return report, err
		}
	}

	report.Duration = p.now().Sub(start)
	p.record(ctx, MetaLastExtractRun, report.RunID, MetaLastExtractAt)

	slog.Info("Extraction finished",
		"run_id", report.RunID,
		"processed", report.Processed,
		"extracted", report.Extracted,
		"purged", report.Purged,
		"duration", report.Duration)
	return report, nil
}

// extractOne extracts a single page, saving or purging it. Only a
// cancellation error is returned; item failures go into the report.
func (p *Pipeline) extractOne(ctx context.Context, report *ExtractReport, page *model.PageRecord) error {
	report.Processed++
	content, err := p.extractor.Extract(ctx, page.URL)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil && content == nil {
		err = errors.New("no content extracted")
	}
	if err == nil {
		err = p.saveExtraction(ctx, page, content)
		if err == nil {
			report.Extracted++
			slog.Info("Extracted page", "run_id", report.RunID, "page_id", page.ID, "url", page.URL, "word_count", content.WordCount)
			return nil
		}
	}

	report.Errors = append(report.Errors, ItemError{PageID: page.ID, URL: page.URL, Reason: err.Error()})
	if purgeErr := p.purge(ctx, page.ID); purgeErr != nil {
		slog.Error("Failed to purge page", "run_id", report.RunID, "page_id", page.ID, "url", page.URL, "error", purgeErr)
		return nil
	}
	report.Purged++
	slog.Warn("Purged page after failed extraction", "run_id", report.RunID, "page_id", page.ID, "url", page.URL, "error", err)
	return nil
}

func (p *Pipeline) saveExtraction(ctx context.Context, page *model.PageRecord, content *model.StructuredContent) error {
	content.PageID = page.ID
	if content.ExtractedAt.IsZero() {
		content.ExtractedAt = p.now().UTC()
	}
	if err := p.store.UpsertStructuredContent(ctx, content); err != nil {
		return fmt.Errorf("failed to save structured content: %w", err)
	}

	updated := *page
	updated.Title = pageTitle(page, content)
	updated.RawContent = content.CleanText
	updated.Source = hostname(page.URL)
	if err := p.store.UpsertPage(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

func (p *Pipeline) purge(ctx context.Context, pageID int64) error {
	if err := p.store.DeleteStructuredContent(ctx, pageID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err := p.store.DeletePage(ctx, pageID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

// ClassifyPending classifies up to limit extracted pages that have no
// classification yet.
func (p *Pipeline) ClassifyPending(ctx context.Context, limit int) (*ClassifyReport, error) {
	if p.classifier == nil {
		return nil, errors.New("pipeline has no classifier")
	}

	start := p.now()
	report := &ClassifyReport{RunID: uuid.NewString()}

	items, err := p.store.ListUnclassifiedContent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified content: %w", err)
	}
	report.Total = len(items)
	slog.Info("Starting classification", "run_id", report.RunID, "items", report.Total)

	limiter := ratelimit.NewRateLimiter(p.opts.ClassifyDelay)
	for _, item := range items {
		if err := limiter.Wait(ctx, stageClassify); err != nil {
			report.Duration = p.now().Sub(start)
			return report, err
		}

		c, err := p.classifier.Classify(ctx, item.PageID)
		limiter.Done(stageClassify)
		if err != nil {
			if ctx.Err() != nil {
				report.Duration = p.now().Sub(start)
				return report, ctx.Err()
			}
			report.Failed++
			report.Errors = append(report.Errors, ItemError{PageID: item.PageID, URL: item.URL, Reason: err.Error()})
			slog.Warn("Classification failed", "run_id", report.RunID, "page_id", item.PageID, "error", err)
			continue
		}
		report.Succeeded++
		slog.Debug("Classified page", "run_id", report.RunID, "page_id", item.PageID, "category", c.Category)
	}

	report.Duration = p.now().Sub(start)
	p.record(ctx, MetaLastClassifyRun, report.RunID, MetaLastClassifyAt)

	slog.Info("Classification finished",
		"run_id", report.RunID,
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

func (p *Pipeline) record(ctx context.Context, runKey, runID, atKey string) {
	if err := p.store.SetMeta(ctx, runKey, runID); err != nil {
		slog.Warn("Failed to record run id", "key", runKey, "error", err)
	}
	p.touch(ctx, atKey)
}

func (p *Pipeline) touch(ctx context.Context, key string) {
	if err := p.store.SetMeta(ctx, key, p.now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to record run time", "key", key, "error", err)
	}
}

// pageTitle keeps an existing title and otherwise falls back to the
// first h1, the first header of any level, then the URL.
func pageTitle(page *model.PageRecord, content *model.StructuredContent) string {
	if t := strings.TrimSpace(page.Title); t != "" && t != titleFromURL(page.URL) {
		return t
	}
	if h := content.FirstHeader(1); h != "" {
		return h
	}
	if h := content.FirstHeader(0); h != "" {
		return h
	}
	if t := strings.TrimSpace(page.Title); t != "" {
		return t
	}
	return titleFromURL(page.URL)
}

// titleFromURL returns the last non-empty path segment, or the hostname
// for a bare domain.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		if unescaped, err := url.PathUnescape(last); err == nil {
			return unescaped
		}
		return last
	}
	if u.Hostname() != "" {
		return u.Hostname()
	}
	return rawURL
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
