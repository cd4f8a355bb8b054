package domain

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Layer is anything that can be attached to a MapSurface.
type Layer interface {
	LayerID() uuid.UUID
}

// RenderedLayer is the renderable layer a LayerFactory builds from one GeoPayload.
// It is owned exclusively by the overlay manager once created; at most one
// RenderedLayer is current per map at any time.
type RenderedLayer struct {
	ID        uuid.UUID
	Revision  int64
	Features  *geojson.FeatureCollection
	Clustered bool
}

func (l *RenderedLayer) LayerID() uuid.UUID { return l.ID }

// Bounds returns the bounding box of all feature geometries.
// Returns ErrEmptyExtent when no feature carries a geometry.
func (l *RenderedLayer) Bounds() (orb.Bound, error) {
	if l.Features == nil {
		return orb.Bound{}, ErrEmptyExtent
	}
	return featureBounds(l.Features.Features)
}

// LayerGroup is the container layer holding the current RenderedLayer.
// A fresh group is created on every overlay refresh and never reused.
type LayerGroup struct {
	ID     uuid.UUID
	layers []Layer
}

func NewLayerGroup() *LayerGroup {
	return &LayerGroup{ID: uuid.New()}
}

func (g *LayerGroup) LayerID() uuid.UUID { return g.ID }

// Add attaches a layer to the group.
func (g *LayerGroup) Add(l Layer) {
	g.layers = append(g.layers, l)
}

// Layers returns the attached layers in attach order.
func (g *LayerGroup) Layers() []Layer {
	return g.layers
}

// Bounds returns the union of the bounds of all contained layers.
// Returns ErrEmptyExtent when nothing in the group has a computable extent.
func (g *LayerGroup) Bounds() (orb.Bound, error) {
	var (
		bound orb.Bound
		found bool
	)
	for _, l := range g.layers {
		rl, ok := l.(*RenderedLayer)
		if !ok {
			continue
		}
		b, err := rl.Bounds()
		if err != nil {
			continue
		}
		if !found {
			bound = b
			found = true
		} else {
			bound = bound.Union(b)
		}
	}
	if !found {
		return orb.Bound{}, ErrEmptyExtent
	}
	return bound, nil
}

func featureBounds(features []*geojson.Feature) (orb.Bound, error) {
	var (
		bound orb.Bound
		found bool
	)
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !found {
			bound = b
			found = true
		} else {
			bound = bound.Union(b)
		}
	}
	if !found {
		return orb.Bound{}, ErrEmptyExtent
	}
	return bound, nil
}
