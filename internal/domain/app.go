package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// AppService is the application layer consumed by the HTTP server.
type AppService interface {
	// EnsureMap makes sure an overlay pipeline exists for the map.
	EnsureMap(mapID uuid.UUID)

	// PushPayload feeds a new feature collection into the map's input slot and
	// returns the revision assigned to it.
	PushPayload(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error)

	// ResetOverlay replaces the map's overlay with an empty collection.
	ResetOverlay(ctx context.Context, mapID uuid.UUID) error

	// CurrentLayer returns the most recently installed layer, or ErrMapNotFound.
	CurrentLayer(mapID uuid.UUID) (*RenderedLayer, error)

	// SyncReleves lists releves matching the filter and pushes them to the map.
	SyncReleves(ctx context.Context, mapID uuid.UUID, filter ReleveFilter) (int64, error)

	ListReleves(ctx context.Context, filter ReleveFilter) (*RelevePage, error)
	InsertReleve(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error)
	DeleteReleve(ctx context.Context, id int64) error

	// ActivateMap binds the map surface (first widget client) and replays the
	// latest stored payload onto it.
	ActivateMap(ctx context.Context, mapID uuid.UUID) error
}
