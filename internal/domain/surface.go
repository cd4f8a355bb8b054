package domain

import "github.com/paulmach/orb"

// MapSurface is the handle to the underlying map: a layer registry plus a
// viewport. The overlay manager is its only writer. FitBounds returns
// ErrEmptyExtent when asked to frame an empty extent.
type MapSurface interface {
	AddLayer(l Layer)
	RemoveLayer(l Layer)
	FitBounds(b orb.Bound) error
}
