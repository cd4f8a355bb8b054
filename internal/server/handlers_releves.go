package server

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/domain"
	apperrors "github.com/richardvergely/GeoNature/internal/errors"
)

const dateLayout = "2006-01-02"

// parseReleveFilter reads the listing filter from query parameters. All
// parameters are optional; absent ones mean "no filter".
func parseReleveFilter(c echo.Context) (domain.ReleveFilter, error) {
	var filter domain.ReleveFilter

	for name, target := range map[string]*int{"limit": &filter.Limit, "page": &filter.Page} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return filter, apperrors.ValidationError(fmt.Sprintf("%s must be a non-negative integer", name)).
				WithContext(name, raw)
		}
		*target = value
	}

	if raw := c.QueryParam("cd_nom"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.ValidationError("cd_nom must be an integer").WithContext("cd_nom", raw)
		}
		filter.TaxonCode = value
	}

	filter.Observer = c.QueryParam("observer")

	for name, target := range map[string]*time.Time{"date_low": &filter.DateLow, "date_up": &filter.DateUp} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		value, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, apperrors.ValidationError(fmt.Sprintf("%s must be a YYYY-MM-DD date", name)).
				WithContext(name, raw)
		}
		*target = value
	}

	if !filter.DateLow.IsZero() && !filter.DateUp.IsZero() && filter.DateUp.Before(filter.DateLow) {
		return filter, apperrors.ValidationError("date_up must not precede date_low")
	}

	return filter, nil
}

func (s *Server) handleListReleves(c echo.Context) error {
	filter, err := parseReleveFilter(c)
	if err != nil {
		return err
	}

	page, err := s.app.ListReleves(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(200, page)
}

func (s *Server) handleInsertReleve(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}

	feature, err := geojson.UnmarshalFeature(body)
	if err != nil {
		return apperrors.ValidationError("body must be a GeoJSON feature").WithContext("parse_error", err.Error())
	}

	inserted, err := s.app.InsertReleve(c.Request().Context(), feature)
	if err != nil {
		return err
	}
	return c.JSON(201, inserted)
}

func (s *Server) handleDeleteReleve(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("id must be an integer").WithContext("id", c.Param("id"))
	}

	if err := s.app.DeleteReleve(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(204)
}
