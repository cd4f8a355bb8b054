package errors

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPErrorsTotal tracks HTTP errors by type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)

// Middleware returns an Echo middleware that converts errors returned by
// handlers into structured JSON responses. Echo's own HTTPErrors pass through
// unchanged so middleware-set status codes survive.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				HTTPErrorsTotal.WithLabelValues(string(TypeInternal)).Inc()
				return err
			}

			structured := AsStructuredError(err)
			HTTPErrorsTotal.WithLabelValues(string(structured.Type)).Inc()
			logError(c, structured)

			if err := c.JSON(structured.HTTPStatus(), structured.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case TypeValidation, TypeNotFound:
		slog.Info("Request error", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.Error("Request failed", attrs...)
	}
}
