// Package layer builds renderable layers from GeoJSON payloads, optionally
// clustering point features.
package layer

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

// DefaultClusterRadius is the clustering radius in degrees (~1km at the
// equator).
const DefaultClusterRadius = 0.01

// Factory is the default domain.LayerFactory. It copies the payload's
// features so later payload mutations never leak into an installed layer.
type Factory struct {
	clusterRadius float64
}

// NewFactory creates a factory. radius <= 0 falls back to DefaultClusterRadius.
func NewFactory(radius float64) *Factory {
	if radius <= 0 {
		radius = DefaultClusterRadius
	}
	return &Factory{clusterRadius: radius}
}

// Build turns a payload into a rendered layer. The caller-supplied style and
// per-feature callback run against the layer's own feature copies, in payload
// order.
func (f *Factory) Build(payload *domain.GeoPayload, opts domain.BuildOptions) (*domain.RenderedLayer, error) {
	if payload == nil || payload.Collection == nil {
		return nil, fmt.Errorf("nil payload")
	}

	features := make([]*geojson.Feature, 0, len(payload.Collection.Features))
	for i, src := range payload.Collection.Features {
		if src == nil {
			return nil, fmt.Errorf("feature %d is nil", i)
		}
		features = append(features, copyFeature(src))
	}

	if opts.Clustered {
		features = clusterPoints(features, f.clusterRadius)
	}

	for _, feat := range features {
		if opts.Style != nil {
			applyStyle(feat, opts.Style(feat))
		}
		if opts.OnEachFeature != nil {
			opts.OnEachFeature(feat)
		}
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features

	metrics.LayersBuiltTotal.WithLabelValues(strconv.FormatBool(opts.Clustered)).Inc()

	return &domain.RenderedLayer{
		ID:        uuid.New(),
		Revision:  payload.Revision,
		Features:  fc,
		Clustered: opts.Clustered,
	}, nil
}

func copyFeature(src *geojson.Feature) *geojson.Feature {
	feat := geojson.NewFeature(src.Geometry)
	feat.ID = src.ID
	feat.Properties = src.Properties.Clone()
	return feat
}

func applyStyle(feat *geojson.Feature, style domain.Style) {
	feat.Properties["style"] = style
}
