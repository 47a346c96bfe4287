package models

// ArticlePreview is a single listing-page hit returned by a source adapter.
// IsDuplicate is filled in later by the caller after checking which URLs
// already exist in the record store.
type ArticlePreview struct {
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	PublishedDate   string   `json:"published_date,omitempty"`
	LastUpdated     string   `json:"last_updated,omitempty"`
	Source          string   `json:"source"`
	Snippet         string   `json:"snippet,omitempty"`
	DocumentType    string   `json:"document_type,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	IsDuplicate     bool     `json:"is_duplicate"`
}

// ScraperResult is the outcome of one adapter pass. Adapters never return a
// Go error from Scrape; any failure is reported here with Success=false and
// an empty Articles slice so one broken source cannot abort the fan-out.
type ScraperResult struct {
	Articles   []ArticlePreview `json:"articles"`
	TotalCount int              `json:"total_count"`
	Source     string           `json:"source"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// FailedResult builds the canonical failure value for a source.
func FailedResult(source, errMsg string) ScraperResult {
	return ScraperResult{
		Articles:   []ArticlePreview{},
		TotalCount: 0,
		Source:     source,
		Success:    false,
		Error:      errMsg,
	}
}
