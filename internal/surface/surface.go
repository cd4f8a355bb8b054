// Package surface provides the server-side map surface: the authoritative
// model of a widget's layer stack and viewport. The browser map mirrors it.
package surface

import (
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/richardvergely/GeoNature/internal/domain"
)

// Surface implements domain.MapSurface.
type Surface struct {
	mu       sync.Mutex
	layers   map[uuid.UUID]domain.Layer
	order    []uuid.UUID
	viewport orb.Bound
	framed   bool
}

func New() *Surface {
	return &Surface{layers: make(map[uuid.UUID]domain.Layer)}
}

// AddLayer attaches a layer. Re-adding an attached layer is a no-op.
func (s *Surface) AddLayer(l domain.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := l.LayerID()
	if _, exists := s.layers[id]; exists {
		return
	}
	s.layers[id] = l
	s.order = append(s.order, id)
}

// RemoveLayer detaches a layer. Unknown layers are ignored.
func (s *Surface) RemoveLayer(l domain.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := l.LayerID()
	if _, exists := s.layers[id]; !exists {
		return
	}
	delete(s.layers, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// FitBounds moves the viewport to the given extent. A degenerate single-point
// bound is valid; an empty bound returns ErrEmptyExtent and leaves the
// viewport unchanged.
func (s *Surface) FitBounds(b orb.Bound) error {
	if b.IsEmpty() {
		return domain.ErrEmptyExtent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = b
	s.framed = true
	return nil
}

// Layers returns the attached layers in attach order.
func (s *Surface) Layers() []domain.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Layer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.layers[id])
	}
	return out
}

// Viewport returns the current viewport and whether it has ever been framed.
func (s *Surface) Viewport() (orb.Bound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport, s.framed
}
