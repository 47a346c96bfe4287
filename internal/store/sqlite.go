package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_jobs (
	job_id         TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	total_urls     INTEGER NOT NULL,
	processed_urls INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	title_ko       TEXT,
	source         TEXT NOT NULL,
	country_code   TEXT,
	published_date TIMESTAMP,
	content_raw    TEXT,
	content        TEXT,
	content_ko     TEXT,
	status         TEXT NOT NULL,
	scraped_at     TIMESTAMP NOT NULL,
	translated_at  TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);

CREATE TABLE IF NOT EXISTS attachments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id    TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	filename      TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	file_url      TEXT NOT NULL,
	size          INTEGER NOT NULL DEFAULT 0,
	downloaded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attachments_article ON attachments(article_id);
`

// SQLiteStore is the durable RecordStore backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent stages.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot apply schema: %w", err)
	}

	logger.Get().Info().Str("path", path).Msg("Opened SQLite store")
	return &SQLiteStore{db: db, sb: sq.StatementBuilder}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// CreateJob inserts a new pending job and returns it.
func (s *SQLiteStore) CreateJob(ctx context.Context, totalURLs int) (*models.ScrapeJob, error) {
	now := time.Now().UTC()
	job := &models.ScrapeJob{
		JobID:     "scr-" + uuid.NewString(),
		Status:    models.JobPending,
		TotalURLs: totalURLs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query, args, err := s.sb.Insert("scrape_jobs").
		Columns("job_id", "status", "total_urls", "processed_urls", "created_at", "updated_at").
		Values(job.JobID, job.Status, job.TotalURLs, 0, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	query, args, err := s.sb.
		Select("job_id", "status", "total_urls", "processed_urls", "created_at", "updated_at").
		From("scrape_jobs").
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var job models.ScrapeJob
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&job.JobID, &job.Status, &job.TotalURLs, &job.ProcessedURLs,
		&job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}
	return &job, nil
}

// UpdateJobProgress sets the processed counter.
func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, jobID string, processed int) error {
	return s.updateJob(ctx, jobID, sq.Eq{
		"processed_urls": processed,
		"updated_at":     time.Now().UTC(),
	})
}

// UpdateJobStatus moves the job to a new status.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	return s.updateJob(ctx, jobID, sq.Eq{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
}

func (s *SQLiteStore) updateJob(ctx context.Context, jobID string, set sq.Eq) error {
	builder := s.sb.Update("scrape_jobs").Where(sq.Eq{"job_id": jobID})
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateArticle inserts a new article. An empty ID is assigned here.
func (s *SQLiteStore) CreateArticle(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		article.ID = "art-" + uuid.NewString()
	}
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = time.Now().UTC()
	}
	if article.Status == "" {
		article.Status = models.StatusScraped
	}

	query, args, err := s.sb.Insert("articles").
		Columns("id", "url", "title", "title_ko", "source", "country_code",
			"published_date", "content_raw", "content", "content_ko",
			"status", "scraped_at", "translated_at").
		Values(article.ID, article.URL, article.Title, article.TitleKo,
			article.Source, article.CountryCode, article.PublishedDate,
			article.ContentRaw, article.Content, article.ContentKo,
			article.Status, article.ScrapedAt, article.TranslatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle fetches an article by ID.
func (s *SQLiteStore) GetArticle(ctx context.Context, articleID string) (*models.Article, error) {
	query, args, err := s.sb.
		Select("id", "url", "title", "title_ko", "source", "country_code",
			"published_date", "content_raw", "content", "content_ko",
			"status", "scraped_at", "translated_at").
		From("articles").
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		a          models.Article
		titleKo    sql.NullString
		country    sql.NullString
		published  sql.NullTime
		contentRaw sql.NullString
		content    sql.NullString
		contentKo  sql.NullString
		translated sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.URL, &a.Title, &titleKo, &a.Source, &country,
		&published, &contentRaw, &content, &contentKo,
		&a.Status, &a.ScrapedAt, &translated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select article: %w", err)
	}

	a.TitleKo = titleKo.String
	a.CountryCode = models.CountryCode(country.String)
	if published.Valid {
		t := published.Time
		a.PublishedDate = &t
	}
	a.ContentRaw = contentRaw.String
	a.Content = content.String
	a.ContentKo = contentKo.String
	if translated.Valid {
		t := translated.Time
		a.TranslatedAt = &t
	}
	return &a, nil
}

// UpdateArticleExtraction stores the cleaned content and advances status.
func (s *SQLiteStore) UpdateArticleExtraction(ctx context.Context, articleID, content string) error {
	return s.updateArticle(ctx, articleID, map[string]interface{}{
		"content": content,
		"status":  models.StatusExtracted,
	})
}

// UpdateArticleTranslation stores the Korean title and body and advances
// status.
func (s *SQLiteStore) UpdateArticleTranslation(ctx context.Context, articleID, titleKo, contentKo string) error {
	return s.updateArticle(ctx, articleID, map[string]interface{}{
		"title_ko":      titleKo,
		"content_ko":    contentKo,
		"status":        models.StatusTranslated,
		"translated_at": time.Now().UTC(),
	})
}

func (s *SQLiteStore) updateArticle(ctx context.Context, articleID string, set map[string]interface{}) error {
	builder := s.sb.Update("articles").Where(sq.Eq{"id": articleID})
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// URLExists reports whether an article with this URL is already stored.
func (s *SQLiteStore) URLExists(ctx context.Context, url string) (bool, error) {
	query, args, err := s.sb.Select("1").From("articles").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select url: %w", err)
	}
	return true, nil
}

// URLsExist checks many URLs at once. The result maps every input URL to
// its stored/not-stored flag.
func (s *SQLiteStore) URLsExist(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return result, nil
	}
	for _, u := range urls {
		result[u] = false
	}

	query, args, err := s.sb.Select("url").From("articles").Where(sq.Eq{"url": urls}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[u] = true
	}
	return result, rows.Err()
}

// SaveAttachments inserts attachment records for downloaded files.
func (s *SQLiteStore) SaveAttachments(ctx context.Context, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	builder := s.sb.Insert("attachments").
		Columns("article_id", "filename", "file_path", "file_url", "size", "downloaded_at")
	for _, att := range attachments {
		builder = builder.Values(att.ArticleID, att.Filename, att.FilePath,
			att.FileURL, att.Size, att.DownloadedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attachments: %w", err)
	}
	return nil
}
