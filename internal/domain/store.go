package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// PayloadStore holds the latest payload per map together with a monotonically
// increasing revision counter. The revision is the payload's occurrence
// identity: every store bumps it, and change detection compares revisions only.
type PayloadStore interface {
	// SetLatest stores the collection as the map's newest payload and returns
	// the revision assigned to it.
	SetLatest(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error)

	// GetLatest returns the newest payload, or ErrPayloadNotFound when the map
	// has never received one.
	GetLatest(ctx context.Context, mapID uuid.UUID) (*GeoPayload, error)

	// Revision returns the current revision, 0 when no payload exists.
	Revision(ctx context.Context, mapID uuid.UUID) (int64, error)
}
