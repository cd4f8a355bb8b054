package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Releve API
	s.echo.GET("/api/releves", s.handleListReleves)
	s.echo.POST("/api/releves", s.handleInsertReleve)
	s.echo.DELETE("/api/releves/:id", s.handleDeleteReleve)

	// Map overlay API
	s.echo.POST("/api/maps/:uuid/payload", s.handlePushPayload)
	s.echo.GET("/api/maps/:uuid/layer", s.handleCurrentLayer)
	s.echo.POST("/api/maps/:uuid/reset", s.handleResetOverlay)
	s.echo.POST("/api/maps/:uuid/sync", s.handleSyncReleves)

	// Widget WebSocket
	s.echo.GET("/ws/maps/:uuid", s.handleWebSocket)
}
