package logging

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithMap returns a logger with a map_uuid field.
func WithMap(mapID uuid.UUID) *slog.Logger {
	return Logger.With("map_uuid", mapID.String())
}

// WithLayer returns a logger with a layer_id field.
func WithLayer(layerID uuid.UUID) *slog.Logger {
	return Logger.With("layer_id", layerID.String())
}

// WithError returns a logger with an error field.
func WithError(err error) *slog.Logger {
	return Logger.With("error", err)
}
