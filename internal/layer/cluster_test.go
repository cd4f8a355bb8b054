package layer

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterMergesNearbyPoints(t *testing.T) {
	features := []*geojson.Feature{
		pointFeature(0.001, 0.001),
		pointFeature(0.002, 0.002),
	}

	out := clusterPoints(features, 0.01)

	require.Len(t, out, 1)
	assert.Equal(t, true, out[0].Properties["cluster"])
	assert.Equal(t, 2, out[0].Properties["point_count"])

	centroid := out[0].Geometry.(orb.Point)
	assert.InDelta(t, 0.0015, centroid.Lon(), 1e-9)
	assert.InDelta(t, 0.0015, centroid.Lat(), 1e-9)
}

func TestClusterKeepsDistantPointsApart(t *testing.T) {
	features := []*geojson.Feature{
		pointFeature(0, 0),
		pointFeature(10, 10),
	}

	out := clusterPoints(features, 0.01)

	require.Len(t, out, 2)
	for _, feat := range out {
		assert.Nil(t, feat.Properties["cluster"])
	}
}

func TestClusterPassesNonPointsThrough(t *testing.T) {
	poly := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	features := []*geojson.Feature{
		poly,
		pointFeature(0.001, 0.001),
		pointFeature(0.002, 0.002),
	}

	out := clusterPoints(features, 0.01)

	require.Len(t, out, 2)
	assert.Same(t, poly, out[0], "non-point geometries pass through first")
	assert.Equal(t, 2, out[1].Properties["point_count"])
}

func TestClusterPreservesTotalPointCount(t *testing.T) {
	features := []*geojson.Feature{
		pointFeature(0.001, 0.001),
		pointFeature(0.002, 0.002),
		pointFeature(5.0, 5.0),
		pointFeature(5.001, 5.001),
		pointFeature(9.0, 9.0),
	}

	out := clusterPoints(features, 0.01)

	total := 0
	for _, feat := range out {
		if count, ok := feat.Properties["point_count"].(int); ok {
			total += count
		} else {
			total++
		}
	}
	assert.Equal(t, len(features), total)
}
