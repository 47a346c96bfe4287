package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regscope/regscope/internal/attachments"
	"github.com/regscope/regscope/internal/cache"
	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/jobs"
	"github.com/regscope/regscope/internal/models"
	"github.com/regscope/regscope/internal/progress"
	"github.com/regscope/regscope/internal/prompts"
	"github.com/regscope/regscope/internal/remote"
	"github.com/regscope/regscope/internal/store"
)

// fakeBackends serves both the scrape and the completion API. Scrape
// behavior is driven per-URL; completions return a canned extraction and
// translation unless overridden.
type fakeBackends struct {
	server *httptest.Server

	// URLs that should fail with a non-retryable client error.
	failScrape map[string]bool
	// Fail plain-text completion calls with a client error.
	failExtraction bool
	// Translation JSON returned for jsonMode calls.
	translation string
}

func newFakeBackends(t *testing.T) *fakeBackends {
	t.Helper()
	f := &fakeBackends{
		failScrape:  map[string]bool{},
		translation: `{"title_ko":"제목","content_ko":"본문"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/scrape", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if f.failScrape[req.URL] {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Notice body for " + req.URL,
				"html":     `<html><body><p>notice</p></body></html>`,
			},
		})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat map[string]any `json:"response_format"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if req.ResponseFormat == nil && f.failExtraction {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		content := "cleaned article body"
		if req.ResponseFormat != nil {
			content = f.translation
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writePrompt(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("You are a helpful assistant."), 0o644))
	return path
}

type testEnv struct {
	pipe     *Pipeline
	store    *store.MemoryStore
	urls     *jobs.URLStore
	bus      *progress.Bus
	backends *fakeBackends
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backends := newFakeBackends(t)

	promptDir := t.TempDir()
	cfg := &config.Config{
		Env:                  "test",
		PromptExtractDefault: writePrompt(t, promptDir, "extract_default.md"),
		PromptExtractBySrc:   map[string]string{},
		PromptTranslate:      writePrompt(t, promptDir, "translate_ko.md"),
		AttachmentDir:        t.TempDir(),
		MaxArticlesPerSite:   25,
	}

	memStore := store.NewMemoryStore()
	urlStore := jobs.NewURLStore()
	bus := progress.NewBus()

	pipe := New(
		cfg,
		memStore,
		cache.NewMemoryCache(time.Hour),
		remote.NewScrapeClient(backends.server.URL, "test-key", 5*time.Second, 5*time.Second),
		remote.NewCompletionClient(backends.server.URL, "test-key", "test-model", 5*time.Second),
		prompts.NewStore(cfg),
		attachments.NewDownloader(cfg.AttachmentDir, nil),
		urlStore,
		bus,
	)

	return &testEnv{pipe: pipe, store: memStore, urls: urlStore, bus: bus, backends: backends}
}

func (e *testEnv) submitJob(t *testing.T, urls ...string) *models.ScrapeJob {
	t.Helper()
	items := make([]models.URLItem, len(urls))
	for i, u := range urls {
		items[i] = models.URLItem{Title: fmt.Sprintf("item %d", i), Source: "fcc", Link: u}
	}
	job, err := e.store.CreateJob(context.Background(), len(items))
	require.NoError(t, err)
	e.urls.Put(job.JobID, items)
	return job
}

func eventTypes(events []progress.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestRunProcessesAllItems(t *testing.T) {
	env := newTestEnv(t)
	job := env.submitJob(t,
		"https://example.com/a",
		"https://example.com/b",
	)

	env.pipe.Run(context.Background(), job.JobID)

	got, err := env.store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, 2, got.ProcessedURLs)

	events, completed := env.bus.Drain(job.JobID)
	assert.True(t, completed)
	assert.Equal(t, []string{
		"job_started",
		"url_scraped", "url_completed",
		"url_scraped", "url_completed",
		"job_completed",
	}, eventTypes(events))

	final := events[len(events)-1]
	assert.Equal(t, 2, final.Data["success_count"])
	assert.Equal(t, 0, final.Data["skipped_count"])
	assert.Equal(t, 0, final.Data["error_count"])
	assert.Equal(t, 2, final.Data["scraped_count"])
	assert.Equal(t, 2, final.Data["extracted_count"])
	assert.Equal(t, 2, final.Data["translated_count"])
}

func TestRunReportsRunningStageCounts(t *testing.T) {
	env := newTestEnv(t)
	job := env.submitJob(t,
		"https://example.com/a",
		"https://example.com/b",
	)

	env.pipe.Run(context.Background(), job.JobID)

	events, _ := env.bus.Drain(job.JobID)
	var completedEvents []progress.Event
	for _, ev := range events {
		if ev.Type == "url_completed" {
			completedEvents = append(completedEvents, ev)
		}
	}
	require.Len(t, completedEvents, 2)

	// Each item event carries the totals accumulated so far.
	for i, ev := range completedEvents {
		assert.Equal(t, i+1, ev.Data["scraped_count"])
		assert.Equal(t, i+1, ev.Data["extracted_count"])
		assert.Equal(t, i+1, ev.Data["translated_count"])
	}
}

func TestRunSkipsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One URL is already stored from an earlier run.
	require.NoError(t, env.store.CreateArticle(ctx, &models.Article{
		URL: "https://example.com/dup", Title: "old", Source: "fcc",
	}))

	job := env.submitJob(t,
		"https://example.com/dup",
		"https://example.com/new",
	)
	env.pipe.Run(ctx, job.JobID)

	got, err := env.store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, 2, got.ProcessedURLs)

	events, _ := env.bus.Drain(job.JobID)
	assert.Equal(t, []string{
		"job_started",
		"url_skipped",
		"url_scraped", "url_completed",
		"job_completed",
	}, eventTypes(events))

	final := events[len(events)-1]
	assert.Equal(t, 1, final.Data["success_count"])
	assert.Equal(t, 1, final.Data["skipped_count"])
	assert.Equal(t, 0, final.Data["error_count"])
}

func TestRunScrapeFailureFailsJob(t *testing.T) {
	env := newTestEnv(t)
	env.backends.failScrape["https://example.com/bad"] = true

	job := env.submitJob(t,
		"https://example.com/bad",
		"https://example.com/good",
	)
	env.pipe.Run(context.Background(), job.JobID)

	got, err := env.store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	// One unexpected error fails the job even though the other item
	// went through.
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, 2, got.ProcessedURLs)

	events, _ := env.bus.Drain(job.JobID)
	assert.Equal(t, []string{
		"job_started",
		"url_error",
		"url_scraped", "url_completed",
		"job_failed",
	}, eventTypes(events))
}

func TestRunTranslationFailureIsRecoverable(t *testing.T) {
	env := newTestEnv(t)
	env.backends.translation = `{"title_ko":"제목만"}`

	job := env.submitJob(t, "https://example.com/a")
	env.pipe.Run(context.Background(), job.JobID)

	got, err := env.store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	// A best-effort stage failure does not fail the job.
	assert.Equal(t, models.JobCompleted, got.Status)

	events, _ := env.bus.Drain(job.JobID)
	types := eventTypes(events)
	assert.Contains(t, types, "url_completed")

	var completedEvent progress.Event
	for _, ev := range events {
		if ev.Type == "url_completed" {
			completedEvent = ev
		}
	}
	assert.Equal(t, true, completedEvent.Data["extracted"])
	assert.Equal(t, false, completedEvent.Data["translated"])
	assert.NotEmpty(t, completedEvent.Data["warnings"])
}

func TestRunExtractionFailureSkipsTranslation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// Extraction calls fail while the translation backend stays healthy;
	// translation must still be skipped for lack of extracted content.
	env.backends.failExtraction = true
	env.backends.translation = `{"title_ko":"T","content_ko":"C"}`

	job := env.submitJob(t, "https://example.com/a")
	env.pipe.Run(ctx, job.JobID)

	got, err := env.store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)

	events, _ := env.bus.Drain(job.JobID)
	var completedEvent progress.Event
	var articleID string
	for _, ev := range events {
		switch ev.Type {
		case "url_scraped":
			articleID = ev.Data["article_id"].(string)
		case "url_completed":
			completedEvent = ev
		}
	}
	require.NotEmpty(t, articleID)

	assert.Equal(t, false, completedEvent.Data["extracted"])
	assert.Equal(t, false, completedEvent.Data["translated"])
	assert.Equal(t, 1, completedEvent.Data["scraped_count"])
	assert.Equal(t, 0, completedEvent.Data["extracted_count"])
	assert.Equal(t, 0, completedEvent.Data["translated_count"])

	article, err := env.store.GetArticle(ctx, articleID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScraped, article.Status)
	assert.Empty(t, article.Content)
	assert.Empty(t, article.TitleKo)
	assert.Empty(t, article.ContentKo)

	final := events[len(events)-1]
	assert.Equal(t, "job_completed", final.Type)
	assert.Equal(t, 1, final.Data["scraped_count"])
	assert.Equal(t, 0, final.Data["extracted_count"])
	assert.Equal(t, 0, final.Data["translated_count"])
}

func TestRunPersistsPipelineOutput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := env.submitJob(t, "https://example.com/a")
	env.pipe.Run(ctx, job.JobID)

	events, _ := env.bus.Drain(job.JobID)
	var articleID string
	for _, ev := range events {
		if ev.Type == "url_scraped" {
			articleID = ev.Data["article_id"].(string)
		}
	}
	require.NotEmpty(t, articleID)

	article, err := env.store.GetArticle(ctx, articleID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTranslated, article.Status)
	assert.Equal(t, models.CountryUS, article.CountryCode)
	assert.Contains(t, article.ContentRaw, "Notice body")
	assert.Equal(t, "cleaned article body", article.Content)
	assert.Equal(t, "제목", article.TitleKo)
	assert.Equal(t, "본문", article.ContentKo)
}

func TestRunClearsURLList(t *testing.T) {
	env := newTestEnv(t)
	job := env.submitJob(t, "https://example.com/a")

	env.pipe.Run(context.Background(), job.JobID)

	_, ok := env.urls.Get(job.JobID)
	assert.False(t, ok)
}
