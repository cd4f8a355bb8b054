package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

// Options is the widget configuration a Manager reads on every refresh.
type Options struct {
	// Clustered enables point clustering in the layer factory.
	Clustered bool
	// ReframeOnUpdate fits the viewport to the new layer's extent on every
	// refresh after the first one.
	ReframeOnUpdate bool
	// OnEachFeature and Style are forwarded verbatim to the layer factory.
	OnEachFeature domain.FeatureCallback
	Style         domain.StyleFunc
}

// OptionsFunc resolves the current options. It is called once per refresh so
// configuration changes take effect on the next payload, never retroactively.
type OptionsFunc func() Options

// Manager keeps one map surface consistent with the latest payload.
//
// It starts unbound: refreshes before Bind are skipped silently. Once a
// surface is bound, every refresh replaces the previous rendered layer with a
// new one inside a fresh layer group, emits the layer on the notifier, and
// optionally reframes the viewport.
type Manager struct {
	factory  domain.LayerFactory
	notifier *Notifier
	options  OptionsFunc

	mu      sync.Mutex
	surface domain.MapSurface
	current *domain.RenderedLayer
	group   *domain.LayerGroup
}

// NewManager creates a manager in the unbound state.
// options may be nil, in which case zero-value options apply.
func NewManager(factory domain.LayerFactory, notifier *Notifier, options OptionsFunc) *Manager {
	if options == nil {
		options = func() Options { return Options{} }
	}
	return &Manager{
		factory:  factory,
		notifier: notifier,
		options:  options,
	}
}

// Bind attaches the map surface handle. Until this happens every refresh is a
// silent no-op.
func (m *Manager) Bind(surface domain.MapSurface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surface = surface
}

// Bound reports whether a map surface handle is attached.
func (m *Manager) Bound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface != nil
}

// Current returns the most recently installed layer, nil before the first
// refresh completes.
func (m *Manager) Current() *domain.RenderedLayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Notifier returns the manager's notification channel.
func (m *Manager) Notifier() *Notifier {
	return m.notifier
}

// Refresh rebuilds the overlay from the payload and installs it on the
// surface. Callers guarantee the payload differs from the one most recently
// processed; Refresh does not re-validate that.
//
// When no surface is bound the refresh is skipped without error: the missing
// handle is a transient precondition, not a failure. Factory errors propagate
// unwrapped beyond the context message.
func (m *Manager) Refresh(payload *domain.GeoPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.surface == nil {
		slog.Debug("map surface not yet bound, skipping refresh", "revision", payload.Revision)
		metrics.OverlayRefreshesSkipped.Inc()
		return nil
	}

	opts := m.options()

	layer, err := m.factory.Build(payload, domain.BuildOptions{
		Clustered:     opts.Clustered,
		OnEachFeature: opts.OnEachFeature,
		Style:         opts.Style,
	})
	if err != nil {
		return fmt.Errorf("build layer for revision %d: %w", payload.Revision, err)
	}

	m.notifier.Emit(layer)

	// Remove-before-add: the stale layer must never remain visible alongside
	// the new one.
	hadPrevious := m.group != nil
	if hadPrevious {
		m.surface.RemoveLayer(m.group)
	}

	group := domain.NewLayerGroup()
	m.surface.AddLayer(group)
	group.Add(layer)

	m.current = layer
	m.group = group
	metrics.OverlayRefreshesTotal.Inc()

	// Reframing never applies to the very first payload.
	if hadPrevious && opts.ReframeOnUpdate {
		m.reframe(group)
	}

	return nil
}

// reframe fits the viewport to the group's extent. Best-effort: an empty
// extent leaves the viewport unchanged and is only logged. Every other
// failure path in the manager propagates; this one must not.
func (m *Manager) reframe(group *domain.LayerGroup) {
	bounds, err := group.Bounds()
	if err == nil {
		err = m.surface.FitBounds(bounds)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyExtent) {
			slog.Warn("viewport reframe failed", "group_id", group.ID.String(), "error", err)
			metrics.OverlayReframeFailures.Inc()
			return
		}
		slog.Warn("viewport reframe skipped: no computable extent", "group_id", group.ID.String())
		metrics.OverlayReframeFailures.Inc()
	}
}

// Close tears the manager down and closes its notification channel.
func (m *Manager) Close() {
	m.notifier.Close()
}
