// Package store persists jobs, articles, and attachments. The production
// implementation is SQLite; MemoryStore backs tests.
package store

import (
	"context"
	"errors"

	"github.com/regscope/regscope/internal/models"
)

// ErrNotFound is returned when a job or article does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is the persistence capability the pipeline and API depend on.
type RecordStore interface {
	// Jobs
	CreateJob(ctx context.Context, totalURLs int) (*models.ScrapeJob, error)
	GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error)
	UpdateJobProgress(ctx context.Context, jobID string, processed int) error
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus) error

	// Articles
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)
	UpdateArticleExtraction(ctx context.Context, articleID, content string) error
	UpdateArticleTranslation(ctx context.Context, articleID, titleKo, contentKo string) error
	URLExists(ctx context.Context, url string) (bool, error)
	URLsExist(ctx context.Context, urls []string) (map[string]bool, error)

	// Attachments
	SaveAttachments(ctx context.Context, attachments []models.Attachment) error

	Close() error
}
