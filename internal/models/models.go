package models

import (
	"time"
)

// ArticleStatus tracks how far an article has moved through the pipeline.
// The value only ever moves forward; a failed stage leaves the article at
// its last successful status.
type ArticleStatus string

const (
	StatusScraped    ArticleStatus = "scraped"
	StatusExtracted  ArticleStatus = "extracted"
	StatusTranslated ArticleStatus = "translated"
)

// JobStatus is the lifecycle state of a background scrape job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CountryCode identifies the regulator's country.
type CountryCode string

const (
	CountryKR CountryCode = "KR"
	CountryUS CountryCode = "US"
	CountryUK CountryCode = "UK"
	CountryJP CountryCode = "JP"
)

// URLItem is the unit of work submitted to the pipeline. Items come either
// from operator-selected preview results or from an external URL list.
// The Link field is the deduplication key across the whole system.
type URLItem struct {
	Title         string     `json:"title"`
	Source        string     `json:"source"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Link          string     `json:"link" validate:"required,url"`
}

// Article is the persisted record produced by the pipeline. ContentRaw holds
// the scraped markdown, Content the cleaned extraction output, and the Ko
// fields the translated title and body.
type Article struct {
	ID            string        `json:"id"`
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	TitleKo       string        `json:"title_ko,omitempty"`
	Source        string        `json:"source"`
	CountryCode   CountryCode   `json:"country_code,omitempty"`
	PublishedDate *time.Time    `json:"published_date,omitempty"`
	ContentRaw    string        `json:"content_raw,omitempty"`
	ContentHTML   string        `json:"-"`
	Content       string        `json:"content,omitempty"`
	ContentKo     string        `json:"content_ko,omitempty"`
	Status        ArticleStatus `json:"status"`
	ScrapedAt     time.Time     `json:"scraped_at"`
	TranslatedAt  *time.Time    `json:"translated_at,omitempty"`
}

// Attachment is a downloaded file owned by its article. It is created only
// after a successful download and is removed together with the article.
type Attachment struct {
	ID           int64     `json:"id"`
	ArticleID    string    `json:"article_id"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"file_path"`
	FileURL      string    `json:"file_url"`
	Size         int64     `json:"size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// ScrapeJob tracks a single batch run. TotalURLs is fixed at creation;
// ProcessedURLs and Status are the only mutable fields and both advance
// monotonically.
type ScrapeJob struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	TotalURLs     int       `json:"total_urls"`
	ProcessedURLs int       `json:"processed_urls"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
