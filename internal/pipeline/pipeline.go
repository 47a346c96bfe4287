// Package pipeline runs the per-job processing loop: dedup, scrape,
// persist, attachments, extraction, translation. Items run sequentially;
// within one item the later stages are best-effort so a failed extraction
// or translation still leaves a stored article.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/attachments"
	"github.com/regscope/regscope/internal/cache"
	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/country"
	"github.com/regscope/regscope/internal/jobs"
	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
	"github.com/regscope/regscope/internal/progress"
	"github.com/regscope/regscope/internal/prompts"
	"github.com/regscope/regscope/internal/remote"
	"github.com/regscope/regscope/internal/store"
)

// Pipeline wires the stages together for background job runs.
type Pipeline struct {
	cfg        *config.Config
	store      store.RecordStore
	cache      cache.Cache
	scraper    *remote.ScrapeClient
	completion *remote.CompletionClient
	prompts    *prompts.Store
	downloader *attachments.Downloader
	urls       *jobs.URLStore
	bus        *progress.Bus
	log        zerolog.Logger
}

// New builds a pipeline over the shared clients and stores.
func New(
	cfg *config.Config,
	recordStore store.RecordStore,
	urlCache cache.Cache,
	scraper *remote.ScrapeClient,
	completion *remote.CompletionClient,
	promptStore *prompts.Store,
	downloader *attachments.Downloader,
	urlStore *jobs.URLStore,
	bus *progress.Bus,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      recordStore,
		cache:      urlCache,
		scraper:    scraper,
		completion: completion,
		prompts:    promptStore,
		downloader: downloader,
		urls:       urlStore,
		bus:        bus,
		log:        logger.With("pipeline"),
	}
}

// jobStats carries the running per-stage totals for one job. They ride on
// every consolidated item event and on the terminal event.
type jobStats struct {
	scraped    int
	extracted  int
	translated int
}

// Run processes every URL of a job in submission order. It owns the job's
// status transitions: processing on entry, then completed or failed. The
// job fails only when at least one item hit an unexpected error; skipped
// duplicates and best-effort stage failures never fail the job.
func (p *Pipeline) Run(ctx context.Context, jobID string) {
	startedAt := time.Now().UTC()

	items, ok := p.urls.Get(jobID)
	if !ok {
		p.log.Error().Str("job_id", jobID).Msg("No URL list for job")
		p.finish(ctx, jobID, startedAt, 0, 0, 1, &jobStats{})
		return
	}
	defer p.urls.Clear(jobID)

	if err := p.store.UpdateJobStatus(ctx, jobID, models.JobProcessing); err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("Cannot mark job processing")
		p.finish(ctx, jobID, startedAt, 0, 0, 1, &jobStats{})
		return
	}

	p.bus.Publish(jobID, "job_started", map[string]interface{}{
		"total_urls": len(items),
	})
	p.log.Info().Str("job_id", jobID).Int("urls", len(items)).Msg("Job started")

	var stats jobStats
	var successCount, skippedCount, errorCount int
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Str("job_id", jobID).Msg("Job context cancelled")
			errorCount += len(items) - i
			break
		}

		outcome := p.processItem(ctx, jobID, item, &stats)
		switch outcome {
		case itemSuccess:
			successCount++
		case itemSkipped:
			skippedCount++
		case itemError:
			errorCount++
		}

		processed := i + 1
		if err := p.store.UpdateJobProgress(ctx, jobID, processed); err != nil {
			p.log.Error().Err(err).Str("job_id", jobID).Msg("Cannot update progress")
		}
	}

	p.finish(ctx, jobID, startedAt, successCount, skippedCount, errorCount, &stats)
}

func (p *Pipeline) finish(ctx context.Context, jobID string, startedAt time.Time, success, skipped, errors int, stats *jobStats) {
	status := models.JobCompleted
	eventType := "job_completed"
	if errors > 0 {
		status = models.JobFailed
		eventType = "job_failed"
	}

	if err := p.store.UpdateJobStatus(ctx, jobID, status); err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("Cannot update final status")
	}

	p.bus.Publish(jobID, eventType, map[string]interface{}{
		"success_count":    success,
		"skipped_count":    skipped,
		"error_count":      errors,
		"scraped_count":    stats.scraped,
		"extracted_count":  stats.extracted,
		"translated_count": stats.translated,
		"started_at":       startedAt,
		"finished_at":      time.Now().UTC(),
	})
	p.bus.Complete(jobID)

	p.log.Info().
		Str("job_id", jobID).
		Str("status", string(status)).
		Int("success", success).
		Int("skipped", skipped).
		Int("errors", errors).
		Msg("Job finished")
}

type itemOutcome int

const (
	itemSuccess itemOutcome = iota
	itemSkipped
	itemError
)

// processItem runs all stages for one URL. Scrape and persist failures
// abort the item; attachment, extraction, and translation failures are
// recorded in the event stream but keep the item successful.
func (p *Pipeline) processItem(ctx context.Context, jobID string, item models.URLItem, stats *jobStats) itemOutcome {
	log := p.log.With().Str("job_id", jobID).Str("url", item.Link).Logger()

	duplicate, err := p.isDuplicate(ctx, item.Link)
	if err != nil {
		log.Warn().Err(err).Msg("Duplicate check failed, treating as new")
	}
	if duplicate {
		log.Info().Msg("Skipping already-processed URL")
		p.bus.Publish(jobID, "url_skipped", map[string]interface{}{
			"url":    item.Link,
			"reason": "duplicate",
		})
		return itemSkipped
	}

	article, err := p.scrapeItem(ctx, item)
	if err != nil {
		log.Error().Err(err).Msg("Item failed")
		p.bus.Publish(jobID, "url_error", map[string]interface{}{
			"url":   item.Link,
			"error": err.Error(),
		})
		return itemError
	}

	stats.scraped++
	p.bus.Publish(jobID, "url_scraped", map[string]interface{}{
		"url":        item.Link,
		"article_id": article.ID,
		"title":      article.Title,
	})

	var warnings []string
	if err := p.handleAttachments(ctx, article); err != nil {
		log.Warn().Err(err).Msg("Attachment stage failed")
		warnings = append(warnings, "attachments: "+err.Error())
	}

	extracted := false
	if err := p.extract(ctx, article); err != nil {
		log.Warn().Err(err).Msg("Extraction stage failed")
		warnings = append(warnings, "extraction: "+err.Error())
	} else {
		extracted = true
		stats.extracted++
	}

	// Translation only runs over extracted content; a failed extraction
	// leaves the article at scraped with no Korean fields.
	translated := false
	if extracted {
		if err := p.translate(ctx, article); err != nil {
			log.Warn().Err(err).Msg("Translation stage failed")
			warnings = append(warnings, "translation: "+err.Error())
		} else {
			translated = true
			stats.translated++
		}
	}

	if err := p.markProcessed(ctx, item.Link); err != nil {
		log.Warn().Err(err).Msg("Cannot mark URL processed in cache")
	}

	data := map[string]interface{}{
		"url":              item.Link,
		"article_id":       article.ID,
		"extracted":        extracted,
		"translated":       translated,
		"scraped_count":    stats.scraped,
		"extracted_count":  stats.extracted,
		"translated_count": stats.translated,
	}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}
	p.bus.Publish(jobID, "url_completed", data)
	return itemSuccess
}

// isDuplicate consults the fast cache first, then the durable store.
func (p *Pipeline) isDuplicate(ctx context.Context, url string) (bool, error) {
	if p.cache != nil {
		cached, err := p.cache.IsProcessed(ctx, url)
		if err == nil && cached {
			return true, nil
		}
		if err != nil {
			p.log.Warn().Err(err).Msg("Cache lookup failed, falling back to store")
		}
	}
	return p.store.URLExists(ctx, url)
}

func (p *Pipeline) markProcessed(ctx context.Context, url string) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.MarkProcessed(ctx, url)
}

// scrapeItem fetches the page and persists the raw article record.
func (p *Pipeline) scrapeItem(ctx context.Context, item models.URLItem) (*models.Article, error) {
	opts := remote.ScrapeOptions{
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
	}
	if src, ok := p.cfg.Source(item.Source); ok && src.Headless {
		opts.Render = true
	}

	result, err := p.scraper.Scrape(ctx, item.Link, opts)
	if err != nil {
		return nil, fmt.Errorf("scrape failed: %w", err)
	}
	if strings.TrimSpace(result.Markdown) == "" {
		return nil, fmt.Errorf("scrape returned empty content")
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		if meta, ok := result.Metadata["title"].(string); ok {
			title = strings.TrimSpace(meta)
		}
	}
	if title == "" {
		title = item.Link
	}

	article := &models.Article{
		URL:           item.Link,
		Title:         title,
		Source:        item.Source,
		CountryCode:   country.Map(item.Source),
		PublishedDate: item.PublishedDate,
		ContentRaw:    result.Markdown,
		ContentHTML:   result.HTML,
		Status:        models.StatusScraped,
		ScrapedAt:     time.Now().UTC(),
	}

	if err := p.store.CreateArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("persist failed: %w", err)
	}
	return article, nil
}

// handleAttachments extracts document links from the article HTML,
// downloads them, and records the results.
func (p *Pipeline) handleAttachments(ctx context.Context, article *models.Article) error {
	if article.ContentHTML == "" {
		return nil
	}

	links, err := attachments.ExtractLinks(article.ContentHTML, article.URL)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}

	saved := p.downloader.DownloadAll(ctx, article, links)
	if len(saved) == 0 {
		if len(links) > 0 {
			return fmt.Errorf("no attachments downloaded out of %d links", len(links))
		}
		return nil
	}
	return p.store.SaveAttachments(ctx, saved)
}

// extract asks the completion backend to clean the raw markdown into
// article body text using the source's extraction prompt.
func (p *Pipeline) extract(ctx context.Context, article *models.Article) error {
	prompt, err := p.prompts.Extraction(article.Source)
	if err != nil {
		return fmt.Errorf("no extraction prompt: %w", err)
	}

	content, err := p.completion.Complete(ctx, prompt, article.ContentRaw, false)
	if err != nil {
		return fmt.Errorf("extraction call failed: %w", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("extraction returned empty content")
	}

	if err := p.store.UpdateArticleExtraction(ctx, article.ID, content); err != nil {
		return fmt.Errorf("cannot store extraction: %w", err)
	}
	article.Content = content
	article.Status = models.StatusExtracted
	return nil
}

type translationResponse struct {
	TitleKo   string `json:"title_ko"`
	ContentKo string `json:"content_ko"`
}

// translate produces the Korean title and body. The backend must return a
// JSON object carrying both fields; anything less is a stage failure.
func (p *Pipeline) translate(ctx context.Context, article *models.Article) error {
	prompt, err := p.prompts.Translation()
	if err != nil {
		return fmt.Errorf("no translation prompt: %w", err)
	}

	if article.Content == "" {
		return fmt.Errorf("no extracted content to translate")
	}
	input := fmt.Sprintf("Title: %s\n\n%s", article.Title, article.Content)

	raw, err := p.completion.Complete(ctx, prompt, input, true)
	if err != nil {
		return fmt.Errorf("translation call failed: %w", err)
	}

	var resp translationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fmt.Errorf("translation response is not valid JSON: %w", err)
	}
	if strings.TrimSpace(resp.TitleKo) == "" || strings.TrimSpace(resp.ContentKo) == "" {
		return fmt.Errorf("translation response missing title_ko or content_ko")
	}

	if err := p.store.UpdateArticleTranslation(ctx, article.ID, resp.TitleKo, resp.ContentKo); err != nil {
		return fmt.Errorf("cannot store translation: %w", err)
	}
	article.TitleKo = resp.TitleKo
	article.ContentKo = resp.ContentKo
	article.Status = models.StatusTranslated
	return nil
}
