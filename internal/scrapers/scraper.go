// Package scrapers holds the per-source listing adapters and the
// coordinator that fans out over them. Each regulator site has its own
// HTML dialect; adapters normalize everything into ScraperResult.
package scrapers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
)

// Scraper is the capability every source adapter implements. Scrape never
// returns a Go error: all failures are folded into the result so one broken
// site cannot abort a multi-source collection pass.
type Scraper interface {
	Scrape(ctx context.Context, dateRange string, maxArticles int) models.ScraperResult
	SourceName() string
}

// Registry maps source names to adapter implementations.
type Registry struct {
	scrapers map[string]Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[string]Scraper{}}
}

// Register adds or replaces an adapter under its lower-cased source name.
func (r *Registry) Register(s Scraper) {
	r.scrapers[strings.ToLower(s.SourceName())] = s
}

// Resolve returns the adapter for a source name, case-insensitively.
func (r *Registry) Resolve(name string) (Scraper, bool) {
	s, ok := r.scrapers[strings.ToLower(name)]
	return s, ok
}

// Names lists the registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	return names
}

// ScrapeAll invokes every named adapter concurrently and aggregates results
// per source. Unknown source names are skipped; an adapter panic is
// converted into a failed result for that source only. Map keys are the
// lower-cased source names.
func (r *Registry) ScrapeAll(ctx context.Context, sources []string, dateRange string, maxPerSource int) map[string]models.ScraperResult {
	log := logger.With("coordinator")

	type namedResult struct {
		name   string
		result models.ScraperResult
	}

	var wg sync.WaitGroup
	results := make(chan namedResult, len(sources))

	for _, source := range sources {
		scraper, ok := r.Resolve(source)
		if !ok {
			log.Warn().Str("source", source).Msg("Unknown source, skipping")
			continue
		}

		wg.Add(1)
		go func(name string, s Scraper) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Str("source", name).Interface("panic", rec).Msg("Scraper panicked")
					results <- namedResult{
						name:   name,
						result: models.FailedResult(name, fmt.Sprintf("scraper panic: %v", rec)),
					}
				}
			}()
			results <- namedResult{name: name, result: s.Scrape(ctx, dateRange, maxPerSource)}
		}(strings.ToLower(source), scraper)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	aggregated := make(map[string]models.ScraperResult)
	for res := range results {
		aggregated[res.name] = res.result
	}

	log.Info().Int("sources", len(aggregated)).Str("date_range", dateRange).Msg("Collection pass finished")
	return aggregated
}

// containsKeyword checks text against a keyword allow-list with
// case-insensitive substring matching, returning every keyword that hit.
func containsKeyword(text string, keywords []string) (bool, []string) {
	if text == "" || len(keywords) == 0 {
		return false, nil
	}
	var matched []string
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return len(matched) > 0, matched
}

// resolveURL makes href absolute against base, dropping fragments and
// non-navigational schemes.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(base, "/") + href
	}
	return strings.TrimSuffix(base, "/") + "/" + href
}
