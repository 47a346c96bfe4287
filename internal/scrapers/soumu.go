package scrapers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
	"github.com/regscope/regscope/internal/remote"
)

const soumuBaseURL = "https://www.soumu.go.jp"

// SoumuScraper reads the Soumu press-release listing, a tableList table of
// date / title / category rows. The ministry publishes across every policy
// area, so a keyword allow-list narrows results to spectrum and wireless
// items. Dates come in the Japanese plain form or as Reiwa era years.
type SoumuScraper struct {
	fetcher    *remote.ScrapeClient
	listingURL string
	keywords   []string
	now        func() time.Time
	log        zerolog.Logger
}

// NewSoumuScraper builds the Soumu adapter; an empty keyword list falls
// back to the configured defaults.
func NewSoumuScraper(fetcher *remote.ScrapeClient, listingURL string, keywords []string) *SoumuScraper {
	return &SoumuScraper{
		fetcher:    fetcher,
		listingURL: listingURL,
		keywords:   keywords,
		now:        time.Now,
		log:        logger.With("scraper.soumu"),
	}
}

func (s *SoumuScraper) SourceName() string { return "soumu" }

func (s *SoumuScraper) Scrape(ctx context.Context, dateRange string, maxArticles int) models.ScraperResult {
	s.log.Info().
		Str("date_range", dateRange).
		Int("max", maxArticles).
		Int("keywords", len(s.keywords)).
		Msg("Starting scrape")

	result, err := s.fetcher.Scrape(ctx, s.listingURL, remote.ScrapeOptions{
		Formats: []string{"html"},
		Render:  true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Backend scrape failed")
		return models.FailedResult("soumu", fmt.Sprintf("scrape backend error: %v", err))
	}
	if result.HTML == "" {
		return models.FailedResult("soumu", "no HTML content received from scraping backend")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return models.FailedResult("soumu", fmt.Sprintf("HTML parse error: %v", err))
	}

	table := doc.Find("table.tableList").First()
	if table.Length() == 0 {
		return models.FailedResult("soumu", "could not find news table (table.tableList)")
	}

	rows := table.Find("tbody tr")
	s.log.Info().Int("rows", rows.Length()).Msg("Parsed listing page")

	var articles []models.ArticlePreview
	seen := map[string]struct{}{}
	totalRows := 0
	now := s.now()

	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() != 3 {
			return true
		}
		totalRows++

		dateStr := strings.TrimSpace(cells.Eq(0).Text())

		link := cells.Eq(1).Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		articleURL := resolveURL(soumuBaseURL, href)
		if articleURL == "" {
			return true
		}
		if _, dup := seen[articleURL]; dup {
			return true
		}
		seen[articleURL] = struct{}{}

		title := strings.TrimSpace(link.Text())
		if len([]rune(title)) < 5 {
			return true
		}

		hasKeyword, matched := containsKeyword(title, s.keywords)
		if !hasKeyword {
			return true
		}

		parsed := ParseJapanese(dateStr)
		if !InRange(parsed, dateRange, now) {
			return true
		}

		var snippet string
		if category := strings.TrimSpace(cells.Eq(2).Text()); category != "" {
			snippet = "Category: " + category
		}

		articles = append(articles, models.ArticlePreview{
			Title:           title,
			URL:             articleURL,
			PublishedDate:   FormatDisplay(parsed),
			Source:          "Soumu",
			Snippet:         snippet,
			MatchedKeywords: matched,
		})

		return len(articles) < maxArticles
	})

	s.log.Info().
		Int("articles", len(articles)).
		Int("rows_scanned", totalRows).
		Msg("Scrape finished")

	return models.ScraperResult{
		Articles:   articles,
		TotalCount: len(articles),
		Source:     "soumu",
		Success:    true,
	}
}
