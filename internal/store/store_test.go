package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regscope/regscope/internal/models"
)

// The same behavioral suite runs against both implementations.
func storeImpls(t *testing.T) map[string]RecordStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]RecordStore{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestJobLifecycle(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			job, err := s.CreateJob(ctx, 5)
			require.NoError(t, err)
			assert.NotEmpty(t, job.JobID)
			assert.Equal(t, models.JobPending, job.Status)
			assert.Equal(t, 5, job.TotalURLs)
			assert.Equal(t, 0, job.ProcessedURLs)

			require.NoError(t, s.UpdateJobStatus(ctx, job.JobID, models.JobProcessing))
			require.NoError(t, s.UpdateJobProgress(ctx, job.JobID, 3))

			got, err := s.GetJob(ctx, job.JobID)
			require.NoError(t, err)
			assert.Equal(t, models.JobProcessing, got.Status)
			assert.Equal(t, 3, got.ProcessedURLs)

			require.NoError(t, s.UpdateJobStatus(ctx, job.JobID, models.JobCompleted))
			got, err = s.GetJob(ctx, job.JobID)
			require.NoError(t, err)
			assert.True(t, got.Status.Terminal())
		})
	}
}

func TestJobNotFound(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetJob(ctx, "scr-missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.UpdateJobStatus(ctx, "scr-missing", models.JobFailed), ErrNotFound)
			assert.ErrorIs(t, s.UpdateJobProgress(ctx, "scr-missing", 1), ErrNotFound)
		})
	}
}

func TestArticleLifecycle(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			published := time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC)

			article := &models.Article{
				URL:           "https://example.com/item",
				Title:         "Spectrum notice",
				Source:        "FCC",
				CountryCode:   models.CountryUS,
				PublishedDate: &published,
				ContentRaw:    "# raw markdown",
			}
			require.NoError(t, s.CreateArticle(ctx, article))
			assert.NotEmpty(t, article.ID)

			got, err := s.GetArticle(ctx, article.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusScraped, got.Status)
			assert.Equal(t, "# raw markdown", got.ContentRaw)
			require.NotNil(t, got.PublishedDate)
			assert.Equal(t, published, got.PublishedDate.UTC())

			require.NoError(t, s.UpdateArticleExtraction(ctx, article.ID, "clean body"))
			got, err = s.GetArticle(ctx, article.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusExtracted, got.Status)
			assert.Equal(t, "clean body", got.Content)

			require.NoError(t, s.UpdateArticleTranslation(ctx, article.ID, "주파수 공고", "본문"))
			got, err = s.GetArticle(ctx, article.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusTranslated, got.Status)
			assert.Equal(t, "주파수 공고", got.TitleKo)
			assert.Equal(t, "본문", got.ContentKo)
			assert.NotNil(t, got.TranslatedAt)
		})
	}
}

func TestURLExists(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.CreateArticle(ctx, &models.Article{
				URL: "https://example.com/known", Title: "t", Source: "fcc",
			}))

			ok, err := s.URLExists(ctx, "https://example.com/known")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.URLExists(ctx, "https://example.com/unknown")
			require.NoError(t, err)
			assert.False(t, ok)

			batch, err := s.URLsExist(ctx, []string{
				"https://example.com/known",
				"https://example.com/unknown",
			})
			require.NoError(t, err)
			assert.True(t, batch["https://example.com/known"])
			assert.False(t, batch["https://example.com/unknown"])

			empty, err := s.URLsExist(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestSaveAttachments(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			article := &models.Article{URL: "https://example.com/with-att", Title: "t", Source: "fcc"}
			require.NoError(t, s.CreateArticle(ctx, article))

			atts := []models.Attachment{
				{
					ArticleID:    article.ID,
					Filename:     "report.pdf",
					FilePath:     "/data/att/US/fcc/2025-11/" + article.ID + "/report.pdf",
					FileURL:      "https://example.com/report.pdf",
					Size:         1234,
					DownloadedAt: time.Now().UTC(),
				},
			}
			require.NoError(t, s.SaveAttachments(ctx, atts))
			require.NoError(t, s.SaveAttachments(ctx, nil))
		})
	}
}
