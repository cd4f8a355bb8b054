package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the widget embeds on arbitrary host pages
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	mapID, err := mapUUID(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	// Registration activates the map on its first client; the hub fires that
	// callback itself.
	if err := s.hub.Register(mapID, conn); err != nil {
		slog.Warn("WebSocket registration rejected", "map_uuid", mapID.String(), "error", err)
		return nil
	}

	// Read pump, blocks until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(mapID, conn)
	return nil
}
