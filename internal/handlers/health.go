package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clipbotio/clipbot/internal/healthcheck"
)

type HealthHandler struct {
	logger   *slog.Logger
	checkers []healthcheck.Checker
}

func NewHealthHandler(log *slog.Logger, checkers ...healthcheck.Checker) *HealthHandler {
	return &HealthHandler{
		logger:   log.With(slog.String("handler", "health")),
		checkers: checkers,
	}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthResponse struct {
	Status string                    `json:"status"`
	Checks []healthcheck.CheckResult `json:"checks"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	var checks []healthcheck.CheckResult
	for _, checker := range h.checkers {
		checks = append(checks, checker.ListChecks(ctx)...)
	}

	status := healthcheck.StatusOK
	code := http.StatusOK
	for _, check := range checks {
		switch check.Status {
		case healthcheck.StatusError:
			status = healthcheck.StatusError
			code = http.StatusServiceUnavailable
		case healthcheck.StatusWarn:
			if status == healthcheck.StatusOK {
				status = healthcheck.StatusWarn
			}
		}
	}

	return c.JSON(code, healthResponse{Status: status, Checks: checks})
}
