package domain

import "github.com/paulmach/orb/geojson"

// GeoPayload is the externally supplied geographic data together with its
// occurrence identity. Two payloads are distinct when their revisions differ;
// the overlay manager never deep-compares feature collections.
type GeoPayload struct {
	Revision   int64
	Collection *geojson.FeatureCollection
}
