package scrapers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
)

const fccBaseURL = "https://www.fcc.gov"

// browser-like User-Agent; the FCC site serves an interstitial to obvious bots.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// FCCScraper reads the FCC headlines listing, a Drupal table of views-row
// containers with a headline title, release date, and document type.
// The page is static HTML, so it is fetched directly.
type FCCScraper struct {
	client     *resty.Client
	listingURL string
	now        func() time.Time
	log        zerolog.Logger
}

// NewFCCScraper builds the FCC adapter against the configured listing URL.
func NewFCCScraper(listingURL string) *FCCScraper {
	return &FCCScraper{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			SetHeader("User-Agent", browserUserAgent),
		listingURL: listingURL,
		now:        time.Now,
		log:        logger.With("scraper.fcc"),
	}
}

func (f *FCCScraper) SourceName() string { return "fcc" }

func (f *FCCScraper) Scrape(ctx context.Context, dateRange string, maxArticles int) models.ScraperResult {
	f.log.Info().Str("date_range", dateRange).Int("max", maxArticles).Msg("Starting scrape")

	resp, err := f.client.R().SetContext(ctx).Get(f.listingURL)
	if err != nil {
		f.log.Error().Err(err).Msg("Listing fetch failed")
		return models.FailedResult("fcc", fmt.Sprintf("request error: %v", err))
	}
	if resp.StatusCode() != 200 {
		f.log.Error().Int("status", resp.StatusCode()).Msg("Listing fetch failed")
		return models.FailedResult("fcc", fmt.Sprintf("HTTP %d error", resp.StatusCode()))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return models.FailedResult("fcc", fmt.Sprintf("HTML parse error: %v", err))
	}

	containers := doc.Find("div.views-row")
	if containers.Length() == 0 {
		containers = doc.Find("article")
	}
	f.log.Info().Int("containers", containers.Length()).Msg("Parsed listing page")

	var articles []models.ArticlePreview
	seen := map[string]struct{}{}
	now := f.now()

	containers.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(articles) >= maxArticles {
			return false
		}

		link := sel.Find("div.headline-title a.title").First()
		if link.Length() == 0 {
			link = sel.Find("h3 a, h2 a").First()
		}
		if link.Length() == 0 {
			link = sel.Find("a.title").First()
		}
		if link.Length() == 0 {
			return true
		}

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}

		url := resolveURL(fccBaseURL, href)
		if url == "" {
			return true
		}
		if _, dup := seen[url]; dup {
			return true
		}
		seen[url] = struct{}{}

		dateText := strings.TrimSpace(sel.Find("div.edoc__release-dt").First().Text())
		if dateText == "" {
			timeElem := sel.Find("time").First()
			if dt, ok := timeElem.Attr("datetime"); ok {
				dateText = dt
			} else {
				dateText = strings.TrimSpace(timeElem.Text())
			}
		}
		parsed := ParseFlexible(dateText)

		if !InRange(parsed, dateRange, now) {
			return true
		}

		docType := strings.TrimSpace(sel.Find("div.edoc__doctype div.field__item").First().Text())

		articles = append(articles, models.ArticlePreview{
			Title:         title,
			URL:           url,
			PublishedDate: FormatDisplay(parsed),
			Source:        "FCC",
			DocumentType:  docType,
		})
		return true
	})

	f.log.Info().Int("articles", len(articles)).Msg("Scrape finished")
	return models.ScraperResult{
		Articles:   articles,
		TotalCount: len(articles),
		Source:     "fcc",
		Success:    true,
	}
}
