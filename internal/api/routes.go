package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/regscope/regscope/internal/middleware"
)

// SetupRoutes mounts all endpoints under /api/v1. Mutating endpoints sit
// behind the admin key when one is configured.
func SetupRoutes(app *fiber.App, h *Handlers, adminKey string) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)
	api.Get("/articles/:id", h.GetArticle)

	collect := api.Group("/collect")
	collect.Post("/preview", h.Preview)

	scrape := api.Group("/scrape", middleware.AdminOnly(adminKey))
	scrape.Post("/jobs", h.SubmitJob)
	scrape.Post("/jobs/:id/start", h.StartJob)
	scrape.Get("/jobs/:id", h.JobStatus)
	scrape.Get("/jobs/:id/stream", h.StreamJob)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
