package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/richardvergely/GeoNature/internal/config"
	"github.com/richardvergely/GeoNature/internal/domain"
	apperrors "github.com/richardvergely/GeoNature/internal/errors"
	"github.com/richardvergely/GeoNature/internal/websocket"
)

// pinger is the dependency health check surface. Both the Redis client and
// the pgx pool satisfy it.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       domain.AppService
	hub       *websocket.Hub
	redis     pinger
	db        pinger
	startTime time.Time
}

func NewServer(cfg *config.Config, app domain.AppService, hub *websocket.Hub, redis, db pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		hub:       hub,
		redis:     redis,
		db:        db,
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
