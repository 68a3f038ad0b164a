package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/notteddydev/reimagined-lamp/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name   string
		pinger healthPinger
	}{
		{"postgres", s.postgresHealth},
		{"redis", s.redisHealth},
	}

	for _, check := range checks {
		if check.pinger == nil {
			continue
		}
		if err := check.pinger.Ping(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
