package layer

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardvergely/GeoNature/internal/domain"
)

func payloadOf(revision int64, features ...*geojson.Feature) *domain.GeoPayload {
	fc := geojson.NewFeatureCollection()
	fc.Features = features
	return &domain.GeoPayload{Revision: revision, Collection: fc}
}

func pointFeature(lon, lat float64) *geojson.Feature {
	return geojson.NewFeature(orb.Point{lon, lat})
}

func TestBuildCarriesRevisionAndFeatures(t *testing.T) {
	f := NewFactory(0)

	layer, err := f.Build(payloadOf(7, pointFeature(1, 2), pointFeature(3, 4)), domain.BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(7), layer.Revision)
	assert.False(t, layer.Clustered)
	require.Len(t, layer.Features.Features, 2)
}

func TestBuildCopiesFeatures(t *testing.T) {
	f := NewFactory(0)
	src := pointFeature(1, 2)
	src.Properties["name"] = "original"

	layer, err := f.Build(payloadOf(1, src), domain.BuildOptions{})
	require.NoError(t, err)

	// Mutating the payload after the build must not reach the layer.
	src.Properties["name"] = "mutated"
	assert.Equal(t, "original", layer.Features.Features[0].Properties["name"])
}

func TestBuildRejectsNilPayload(t *testing.T) {
	f := NewFactory(0)

	_, err := f.Build(nil, domain.BuildOptions{})
	assert.Error(t, err)

	_, err = f.Build(&domain.GeoPayload{Revision: 1}, domain.BuildOptions{})
	assert.Error(t, err)
}

func TestBuildInvokesCallbackPerFeature(t *testing.T) {
	f := NewFactory(0)
	var seen int

	opts := domain.BuildOptions{
		OnEachFeature: func(feat *geojson.Feature) {
			seen++
			feat.Properties["popup"] = "bound"
		},
	}
	layer, err := f.Build(payloadOf(1, pointFeature(1, 1), pointFeature(2, 2)), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, seen)
	assert.Equal(t, "bound", layer.Features.Features[0].Properties["popup"])
}

func TestBuildAppliesStyle(t *testing.T) {
	f := NewFactory(0)

	opts := domain.BuildOptions{
		Style: func(*geojson.Feature) domain.Style {
			return domain.Style{Color: "#3388ff", Weight: 2}
		},
	}
	layer, err := f.Build(payloadOf(1, pointFeature(1, 1)), opts)
	require.NoError(t, err)

	style, ok := layer.Features.Features[0].Properties["style"].(domain.Style)
	require.True(t, ok)
	assert.Equal(t, "#3388ff", style.Color)
}

func TestBuildEmptyCollection(t *testing.T) {
	f := NewFactory(0)

	layer, err := f.Build(payloadOf(3), domain.BuildOptions{Clustered: true})
	require.NoError(t, err)

	assert.Empty(t, layer.Features.Features)
	assert.True(t, layer.Clustered)

	_, err = layer.Bounds()
	assert.ErrorIs(t, err, domain.ErrEmptyExtent)
}

func TestBuildClustersWhenEnabled(t *testing.T) {
	f := NewFactory(1.0)

	// Three points inside one grid cell, one far away.
	layer, err := f.Build(payloadOf(1,
		pointFeature(0.1, 0.1),
		pointFeature(0.2, 0.2),
		pointFeature(0.3, 0.3),
		pointFeature(50, 50),
	), domain.BuildOptions{Clustered: true})
	require.NoError(t, err)

	require.Len(t, layer.Features.Features, 2)

	var clustered *geojson.Feature
	for _, feat := range layer.Features.Features {
		if feat.Properties["cluster"] == true {
			clustered = feat
		}
	}
	require.NotNil(t, clustered, "expected one cluster feature")
	assert.Equal(t, 3, clustered.Properties["point_count"])
}
