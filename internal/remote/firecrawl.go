package remote

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
)

// ScrapeResult is the payload returned by the content-scraping backend for
// one page.
type ScrapeResult struct {
	Markdown string         `json:"markdown"`
	HTML     string         `json:"html"`
	Metadata map[string]any `json:"metadata"`
	Links    []string       `json:"links"`
}

// ScrapeOptions tunes a single scrape request.
type ScrapeOptions struct {
	Formats         []string
	OnlyMainContent bool
	// WaitFor delays extraction (milliseconds) so client-rendered listings
	// finish painting; only meaningful together with Render.
	WaitFor int
	// Render requests full browser rendering from the backend, used for
	// sites behind JavaScript or bot challenges.
	Render bool
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	WaitFor         int      `json:"waitFor,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
	Mobile          bool     `json:"mobile"`
}

type scrapeEnvelope struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Data    *ScrapeResult `json:"data"`
}

// ScrapeClient talks to a Firecrawl-compatible scraping API. At most three
// scrape calls are in flight process-wide; additional callers block.
type ScrapeClient struct {
	client         *resty.Client
	apiKey         string
	defaultTimeout time.Duration
	renderTimeout  time.Duration
	sem            semaphore
	log            zerolog.Logger
}

// NewScrapeClient builds the shared scraping client.
func NewScrapeClient(baseURL, apiKey string, defaultTimeout, renderTimeout time.Duration) *ScrapeClient {
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	if renderTimeout <= 0 {
		renderTimeout = 180 * time.Second
	}
	return &ScrapeClient{
		client:         resty.New().SetBaseURL(baseURL),
		apiKey:         apiKey,
		defaultTimeout: defaultTimeout,
		renderTimeout:  renderTimeout,
		sem:            newSemaphore(scrapeConcurrency),
		log:            logger.With("scrape_client"),
	}
}

// Scrape fetches one URL through the backend. Retries transport errors,
// 429 and 5xx with backoff; surfaces the backend's failure envelope and
// auth errors immediately.
func (c *ScrapeClient) Scrape(ctx context.Context, targetURL string, opts ScrapeOptions) (*ScrapeResult, error) {
	if err := c.sem.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.sem.release()

	timeout := c.defaultTimeout
	if opts.Render || needsLongTimeout(targetURL) {
		timeout = c.renderTimeout
	}

	if len(opts.Formats) == 0 {
		opts.Formats = []string{"markdown", "html"}
	}

	req := scrapeRequest{
		URL:             targetURL,
		Formats:         opts.Formats,
		OnlyMainContent: opts.OnlyMainContent,
	}
	if opts.Render {
		req.WaitFor = opts.WaitFor
		if req.WaitFor == 0 {
			req.WaitFor = 5000
		}
		req.Timeout = int(timeout/time.Millisecond) / 2
	}

	c.log.Info().Str("url", targetURL).Bool("render", opts.Render).Msg("Scraping URL")

	var result *ScrapeResult
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var envelope scrapeEnvelope
		resp, err := c.client.R().
			SetContext(callCtx).
			SetHeader("Authorization", "Bearer "+c.apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			SetResult(&envelope).
			Post("/scrape")
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode() == 401:
			return ErrAuth
		case resp.StatusCode() != 200:
			return &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		}

		if !envelope.Success {
			msg := envelope.Error
			if msg == "" {
				msg = "unknown error"
			}
			return &EnvelopeError{Reason: "backend reported failure: " + msg}
		}
		if envelope.Data == nil {
			return &EnvelopeError{Reason: "missing data payload"}
		}

		result = envelope.Data
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("url", targetURL).Msg("Scrape failed")
		return nil, err
	}

	c.log.Info().Str("url", targetURL).Int("markdown_chars", len(result.Markdown)).Msg("Scrape succeeded")
	return result, nil
}
