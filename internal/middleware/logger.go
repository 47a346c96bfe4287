package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
)

// RequestLogger logs every request with method, path, status, client IP,
// and latency through the shared zerolog logger.
func RequestLogger() fiber.Handler {
	return requestLoggerWith(nil)
}

func requestLoggerWith(log *zerolog.Logger) fiber.Handler {
	if log == nil {
		log = logger.Get()
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := log.Info()
		if err != nil {
			event = log.Error().Err(err)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}
