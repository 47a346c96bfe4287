package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/store"
)

// streamPollInterval is how often the stream drains the job's event
// buffer. Producers never block on slow clients; the buffer drops oldest
// events when it overflows between polls.
const streamPollInterval = time.Second

// StreamJob handles GET /scrape/jobs/:id/stream as Server-Sent Events.
// The stream replays buffered events, then follows the job live until the
// terminal event has been delivered.
func (h *Handlers) StreamJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	if _, err := h.store.GetJob(c.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load job",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	bus := h.bus
	log := logger.With("sse")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for {
			events, completed := bus.Drain(jobID)
			for _, event := range events {
				payload, err := json.Marshal(event)
				if err != nil {
					log.Error().Err(err).Str("job_id", jobID).Msg("Cannot encode event")
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
					log.Debug().Err(err).Str("job_id", jobID).Msg("Client disconnected")
					return
				}
			}
			if err := w.Flush(); err != nil {
				log.Debug().Err(err).Str("job_id", jobID).Msg("Client disconnected")
				return
			}

			// Completed and fully drained: the terminal event has been
			// sent, so the job's buffer can be released.
			if completed && len(events) == 0 {
				bus.Clear(jobID)
				return
			}

			time.Sleep(streamPollInterval)
		}
	}))

	return nil
}
