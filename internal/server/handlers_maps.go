package server

import (
	"io"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb/geojson"

	apperrors "github.com/richardvergely/GeoNature/internal/errors"
	"github.com/richardvergely/GeoNature/internal/websocket"
)

func mapUUID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("uuid")
	mapID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid map UUID").WithContext("uuid", raw)
	}
	return mapID, nil
}

func (s *Server) handlePushPayload(c echo.Context) error {
	mapID, err := mapUUID(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return apperrors.ValidationError("body must be a GeoJSON feature collection").
			WithContext("parse_error", err.Error())
	}

	revision, err := s.app.PushPayload(c.Request().Context(), mapID, fc)
	if err != nil {
		return err
	}
	return c.JSON(202, map[string]any{"status": "accepted", "revision": revision})
}

func (s *Server) handleCurrentLayer(c echo.Context) error {
	mapID, err := mapUUID(c)
	if err != nil {
		return err
	}

	layer, err := s.app.CurrentLayer(mapID)
	if err != nil {
		return err
	}
	return c.JSON(200, websocket.LayerUpdate{
		LayerID:   layer.ID.String(),
		Revision:  layer.Revision,
		Clustered: layer.Clustered,
		Features:  layer.Features,
	})
}

func (s *Server) handleResetOverlay(c echo.Context) error {
	mapID, err := mapUUID(c)
	if err != nil {
		return err
	}

	if err := s.app.ResetOverlay(c.Request().Context(), mapID); err != nil {
		return err
	}
	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleSyncReleves(c echo.Context) error {
	mapID, err := mapUUID(c)
	if err != nil {
		return err
	}

	filter, err := parseReleveFilter(c)
	if err != nil {
		return err
	}

	revision, err := s.app.SyncReleves(c.Request().Context(), mapID, filter)
	if err != nil {
		return err
	}
	return c.JSON(202, map[string]any{"status": "accepted", "revision": revision})
}
