// Package api exposes the HTTP surface: collection preview, scrape job
// lifecycle, job progress streaming, and article lookup.
package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/jobs"
	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/middleware"
	"github.com/regscope/regscope/internal/models"
	"github.com/regscope/regscope/internal/pipeline"
	"github.com/regscope/regscope/internal/progress"
	"github.com/regscope/regscope/internal/scrapers"
	"github.com/regscope/regscope/internal/store"
)

// Handlers carries the shared dependencies for all routes.
type Handlers struct {
	cfg      *config.Config
	store    store.RecordStore
	registry *scrapers.Registry
	urls     *jobs.URLStore
	bus      *progress.Bus
	pipeline *pipeline.Pipeline
}

// NewHandlers wires the handler set.
func NewHandlers(
	cfg *config.Config,
	recordStore store.RecordStore,
	registry *scrapers.Registry,
	urlStore *jobs.URLStore,
	bus *progress.Bus,
	pipe *pipeline.Pipeline,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    recordStore,
		registry: registry,
		urls:     urlStore,
		bus:      bus,
		pipeline: pipe,
	}
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"sources": h.registry.Names(),
	})
}

type previewRequest struct {
	Sources     []string `json:"sources"`
	DateRange   string   `json:"date_range"`
	MaxArticles int      `json:"max_articles"`
}

// Preview handles POST /collect/preview. It fans out over the requested
// source adapters and marks already-stored URLs as duplicates so the
// operator can deselect them before submitting a job.
func (h *Handlers) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"msg":   err.Error(),
		})
	}

	sources := req.Sources
	if len(sources) == 0 {
		sources = h.registry.Names()
	}
	dateRange := req.DateRange
	if dateRange == "" {
		dateRange = h.cfg.DefaultDateRange
	}
	maxArticles := req.MaxArticles
	if maxArticles <= 0 || maxArticles > h.cfg.MaxArticlesPerSite {
		maxArticles = h.cfg.MaxArticlesPerSite
	}

	results := h.registry.ScrapeAll(c.Context(), sources, dateRange, maxArticles)

	var allURLs []string
	for _, result := range results {
		for _, article := range result.Articles {
			allURLs = append(allURLs, article.URL)
		}
	}
	existing, err := h.store.URLsExist(c.Context(), allURLs)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Duplicate lookup failed for preview")
		existing = map[string]bool{}
	}

	for name, result := range results {
		for i := range result.Articles {
			result.Articles[i].IsDuplicate = existing[result.Articles[i].URL]
		}
		results[name] = result
	}

	return c.JSON(fiber.Map{
		"date_range": dateRange,
		"results":    results,
	})
}

type submitJobRequest struct {
	URLs []models.URLItem `json:"urls" validate:"required,min=1,dive"`
}

// SubmitJob handles POST /scrape/jobs. It records the URL list and
// creates a pending job; processing starts only on an explicit start call.
func (h *Handlers) SubmitJob(c *fiber.Ctx) error {
	var req submitJobRequest
	if !middleware.ParseAndValidate(c, &req) {
		return nil
	}

	job, err := h.store.CreateJob(c.Context(), len(req.URLs))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Cannot create job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
		})
	}

	h.urls.Put(job.JobID, req.URLs)

	return c.Status(fiber.StatusCreated).JSON(job)
}

// StartJob handles POST /scrape/jobs/:id/start. Only pending jobs can be
// started; the pipeline runs in the background detached from the request.
func (h *Handlers) StartJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	job, err := h.store.GetJob(c.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load job",
		})
	}

	if job.Status != models.JobPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "Job is not pending",
			"status": job.Status,
		})
	}

	if _, ok := h.urls.Get(jobID); !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Job has no URL list; submit it again",
		})
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Get().Error().
					Str("job_id", jobID).
					Interface("panic", rec).
					Msg("Pipeline panicked")
				h.store.UpdateJobStatus(context.Background(), jobID, models.JobFailed)
				h.bus.Complete(jobID)
			}
		}()
		h.pipeline.Run(context.Background(), jobID)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": jobID,
		"status": models.JobProcessing,
	})
}

// JobStatus handles GET /scrape/jobs/:id.
func (h *Handlers) JobStatus(c *fiber.Ctx) error {
	job, err := h.store.GetJob(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load job",
		})
	}
	return c.JSON(job)
}

// GetArticle handles GET /articles/:id.
func (h *Handlers) GetArticle(c *fiber.Ctx) error {
	articleID := strings.TrimSpace(c.Params("id"))
	article, err := h.store.GetArticle(c.Context(), articleID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Article not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load article",
		})
	}
	return c.JSON(article)
}
