package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regscope/regscope/internal/models"
)

// MemoryStore is an in-process RecordStore for tests and local runs
// without a database file.
type MemoryStore struct {
	mu          sync.RWMutex
	jobs        map[string]*models.ScrapeJob
	articles    map[string]*models.Article
	byURL       map[string]string
	attachments []models.Attachment
	nextAttID   int64
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     map[string]*models.ScrapeJob{},
		articles: map[string]*models.Article{},
		byURL:    map[string]string{},
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateJob(_ context.Context, totalURLs int) (*models.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	job := &models.ScrapeJob{
		JobID:     "scr-" + uuid.NewString(),
		Status:    models.JobPending,
		TotalURLs: totalURLs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.JobID] = job

	copied := *job
	return &copied, nil
}

func (m *MemoryStore) GetJob(_ context.Context, jobID string) (*models.ScrapeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *MemoryStore) UpdateJobProgress(_ context.Context, jobID string, processed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.ProcessedURLs = processed
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) UpdateJobStatus(_ context.Context, jobID string, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) CreateArticle(_ context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if article.ID == "" {
		article.ID = "art-" + uuid.NewString()
	}
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = time.Now().UTC()
	}
	if article.Status == "" {
		article.Status = models.StatusScraped
	}

	copied := *article
	m.articles[article.ID] = &copied
	m.byURL[article.URL] = article.ID
	return nil
}

func (m *MemoryStore) GetArticle(_ context.Context, articleID string) (*models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	article, ok := m.articles[articleID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *article
	return &copied, nil
}

func (m *MemoryStore) UpdateArticleExtraction(_ context.Context, articleID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.articles[articleID]
	if !ok {
		return ErrNotFound
	}
	article.Content = content
	article.Status = models.StatusExtracted
	return nil
}

func (m *MemoryStore) UpdateArticleTranslation(_ context.Context, articleID, titleKo, contentKo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.articles[articleID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	article.TitleKo = titleKo
	article.ContentKo = contentKo
	article.Status = models.StatusTranslated
	article.TranslatedAt = &now
	return nil
}

func (m *MemoryStore) URLExists(_ context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *MemoryStore) URLsExist(_ context.Context, urls []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]bool, len(urls))
	for _, u := range urls {
		_, ok := m.byURL[u]
		result[u] = ok
	}
	return result, nil
}

func (m *MemoryStore) SaveAttachments(_ context.Context, attachments []models.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, att := range attachments {
		m.nextAttID++
		att.ID = m.nextAttID
		m.attachments = append(m.attachments, att)
	}
	return nil
}

// Attachments returns a copy of all saved attachment records.
func (m *MemoryStore) Attachments() []models.Attachment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Attachment, len(m.attachments))
	copy(out, m.attachments)
	return out
}
