package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. The route template is logged instead
// of the URL so path parameters such as patient ids stay out of the logs.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get(RequestIDKey).(string)

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one the client sees.
				c.Error(err)
			}

			status := c.Response().Status
			evt := logger.Info()
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn()
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("route", route).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request")

			return nil
		}
	}
}
