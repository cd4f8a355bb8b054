package domain

import "github.com/paulmach/orb/geojson"

// FeatureCallback is a caller-supplied hook invoked for every feature during
// layer construction (popup binding, property decoration). The overlay manager
// forwards it verbatim and never inspects what it does.
type FeatureCallback func(f *geojson.Feature)

// Style describes how a feature is drawn on the widget.
type Style struct {
	Color       string  `json:"color,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
}

// StyleFunc is a caller-supplied style resolver, forwarded verbatim to the
// layer factory.
type StyleFunc func(f *geojson.Feature) Style

// BuildOptions carries the per-refresh configuration forwarded to the factory.
// Clustered is read at refresh time, never cached by the manager.
type BuildOptions struct {
	Clustered     bool
	OnEachFeature FeatureCallback
	Style         StyleFunc
}

// LayerFactory turns a GeoPayload into a renderable layer. Pure transformation,
// no side effects on the map surface. Malformed payloads are the only failure
// mode and those errors propagate to the host.
type LayerFactory interface {
	Build(payload *GeoPayload, opts BuildOptions) (*RenderedLayer, error)
}
