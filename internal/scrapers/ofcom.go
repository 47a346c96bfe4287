package scrapers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
	"github.com/regscope/regscope/internal/remote"
)

const (
	ofcomBaseURL = "https://www.ofcom.org.uk"
	// Spectrum topic on the consultations-and-statements search.
	ofcomTopicSpectrum = "67891"
	ofcomMaxResults    = 108
)

// OfcomScraper reads the Ofcom consultations listing. The site sits behind
// a bot challenge, so the page goes through the scraping backend with full
// rendering. Items are card blocks with a heading, a Published/Last updated
// date pair, and a description; the document type is inferred from a title
// prefix such as "Consultation:".
type OfcomScraper struct {
	fetcher    *remote.ScrapeClient
	listingURL string
	now        func() time.Time
	log        zerolog.Logger
}

// NewOfcomScraper builds the Ofcom adapter on top of the shared fetcher.
func NewOfcomScraper(fetcher *remote.ScrapeClient, listingURL string) *OfcomScraper {
	return &OfcomScraper{
		fetcher:    fetcher,
		listingURL: listingURL,
		now:        time.Now,
		log:        logger.With("scraper.ofcom"),
	}
}

func (o *OfcomScraper) SourceName() string { return "ofcom" }

// buildURL attaches the search parameters, pushing the date window to the
// server so most filtering happens before the page renders.
func (o *OfcomScraper) buildURL(dateRange string) string {
	params := url.Values{}
	params.Set("query", "")
	params.Set("SelectedTopic", ofcomTopicSpectrum)
	params.Set("SelectedSubTopics", "")
	params.Set("ContentStatus", "")
	params.Set("IncludePDF", "true")
	params.Set("SortBy", "Newest")
	params.Set("NumberOfResults", fmt.Sprintf("%d", ofcomMaxResults))

	if dateRange != "" && dateRange != "all" {
		start, end := RangeBoundaries(dateRange, o.now())
		params.Set("UpdatedAfter", start.Format("2006-01-02"))
		params.Set("UpdatedBefore", end.Format("2006-01-02"))
	} else {
		params.Set("UpdatedAfter", "")
		params.Set("UpdatedBefore", "")
	}

	return o.listingURL + "?" + params.Encode()
}

func (o *OfcomScraper) Scrape(ctx context.Context, dateRange string, maxArticles int) models.ScraperResult {
	o.log.Info().Str("date_range", dateRange).Int("max", maxArticles).Msg("Starting scrape")

	target := o.buildURL(dateRange)
	result, err := o.fetcher.Scrape(ctx, target, remote.ScrapeOptions{
		Formats: []string{"html"},
		Render:  true,
	})
	if err != nil {
		o.log.Error().Err(err).Msg("Backend scrape failed")
		return models.FailedResult("ofcom", fmt.Sprintf("scrape backend error: %v", err))
	}
	if result.HTML == "" {
		return models.FailedResult("ofcom", "no HTML content received from scraping backend")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return models.FailedResult("ofcom", fmt.Sprintf("HTML parse error: %v", err))
	}

	blocks := doc.Find("div.search-results-block")
	o.log.Info().Int("blocks", blocks.Length()).Msg("Parsed listing page")

	var warnings []string
	if blocks.Length() == 0 {
		warnings = append(warnings, "No articles found - HTML structure may have changed")
	}

	var articles []models.ArticlePreview
	seen := map[string]struct{}{}
	filteredByDate := 0
	now := o.now()

	blocks.EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if len(articles) >= maxArticles {
			return false
		}

		link := block.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		articleURL := resolveURL(ofcomBaseURL, href)
		if articleURL == "" {
			return true
		}
		if _, dup := seen[articleURL]; dup {
			return true
		}
		seen[articleURL] = struct{}{}

		title := strings.TrimSpace(block.Find("h3.info-card-header").First().Text())
		if title == "" {
			return true
		}

		var published, updated string
		// site markup really does spell it "serach-date"
		block.Find("div.serach-date p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if strings.HasPrefix(text, "Published:") {
				published = strings.TrimSpace(strings.TrimPrefix(text, "Published:"))
			}
			if strings.HasPrefix(text, "Last updated:") {
				updated = strings.TrimSpace(strings.TrimPrefix(text, "Last updated:"))
			}
		})

		finalDate := updated
		if finalDate == "" {
			finalDate = published
		}
		parsed := ParseFlexible(finalDate)

		if !InRange(parsed, dateRange, now) {
			filteredByDate++
			return true
		}

		var snippet string
		block.Find("div.info-card p").Each(func(_ int, p *goquery.Selection) {
			if p.ParentsFiltered("div.serach-date").Length() > 0 {
				return
			}
			if text := strings.TrimSpace(p.Text()); text != "" {
				snippet = text
			}
		})
		if runes := []rune(snippet); len(runes) > 300 {
			snippet = string(runes[:300])
		}

		title, docType := splitTitlePrefix(title)

		articles = append(articles, models.ArticlePreview{
			Title:         title,
			URL:           articleURL,
			PublishedDate: FormatDisplay(parsed),
			LastUpdated:   updated,
			Source:        "Ofcom",
			Snippet:       snippet,
			DocumentType:  docType,
		})
		return true
	})

	if len(articles) == 0 && blocks.Length() > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"No articles passed filters (checked %d blocks, %d filtered by date)",
			blocks.Length(), filteredByDate))
	}

	o.log.Info().
		Int("articles", len(articles)).
		Int("filtered_by_date", filteredByDate).
		Msg("Scrape finished")

	return models.ScraperResult{
		Articles:   articles,
		TotalCount: len(articles),
		Source:     "ofcom",
		Success:    true,
		Warnings:   warnings,
	}
}

// splitTitlePrefix strips a leading document-type label from an Ofcom title
// and returns it separately.
func splitTitlePrefix(title string) (string, string) {
	for _, prefix := range []string{"Consultation:", "Statement:", "Call for Input:"} {
		if strings.HasPrefix(title, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(title, prefix)), strings.TrimSuffix(prefix, ":")
		}
	}
	return title, ""
}
