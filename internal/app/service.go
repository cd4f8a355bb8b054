package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/overlay"
	"github.com/richardvergely/GeoNature/internal/surface"
)

// LayerBroadcaster pushes newly installed layers to a map's widget clients.
type LayerBroadcaster interface {
	BroadcastLayer(mapID uuid.UUID, layer *domain.RenderedLayer)
}

// RevisionSubscribeFunc opens a push stream of revision bumps for one map.
// The returned cancel releases the stream. May be nil; watchers then rely on
// polling alone.
type RevisionSubscribeFunc func(ctx context.Context, mapID uuid.UUID) (<-chan int64, func())

// Config carries the widget options applied to every map pipeline.
type Config struct {
	Clustered       bool
	ReframeOnUpdate bool
	WatchInterval   time.Duration
}

// mapPipeline is one map's overlay machinery: the surface mirrored by the
// widget, the manager keeping it current, and the watcher feeding it.
type mapPipeline struct {
	manager *overlay.Manager
	surface *surface.Surface
	watcher *Watcher
	sub     *overlay.Subscription
	cancel  context.CancelFunc
	stopSub func()
}

func (p *mapPipeline) stop() {
	p.cancel()
	if p.stopSub != nil {
		p.stopSub()
	}
	p.sub.Unsubscribe()
	p.manager.Close()
}

// Service implements domain.AppService.
type Service struct {
	store     domain.PayloadStore
	releves   domain.ReleveRepository
	factory   domain.LayerFactory
	hub       LayerBroadcaster
	subscribe RevisionSubscribeFunc
	clock     clockwork.Clock
	cfg       Config

	activation singleflight.Group

	mu      sync.Mutex
	maps    map[uuid.UUID]*mapPipeline
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(store domain.PayloadStore, releves domain.ReleveRepository, factory domain.LayerFactory, hub LayerBroadcaster, subscribe RevisionSubscribeFunc, clock clockwork.Clock, cfg Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		releves:   releves,
		factory:   factory,
		hub:       hub,
		subscribe: subscribe,
		clock:     clock,
		cfg:       cfg,
		maps:      make(map[uuid.UUID]*mapPipeline),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// EnsureMap creates the map's pipeline if it does not exist yet. The surface
// stays unbound until the first widget client activates the map, so refreshes
// triggered in between are deferred, not lost.
func (s *Service) EnsureMap(mapID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(mapID)
}

func (s *Service) ensureLocked(mapID uuid.UUID) *mapPipeline {
	if p, ok := s.maps[mapID]; ok {
		return p
	}

	options := func() overlay.Options {
		return overlay.Options{
			Clustered:       s.cfg.Clustered,
			ReframeOnUpdate: s.cfg.ReframeOnUpdate,
		}
	}
	manager := overlay.NewManager(s.factory, overlay.NewNotifier(), options)

	refresh := func(ctx context.Context, payload *domain.GeoPayload) bool {
		if !manager.Bound() {
			return false
		}
		if err := manager.Refresh(payload); err != nil {
			// The revision is consumed anyway: the next payload supersedes a
			// broken one, retrying it every poll would not.
			slog.Error("Overlay refresh failed", "map_uuid", mapID.String(), "revision", payload.Revision, "error", err)
		}
		return true
	}

	ctx, cancel := context.WithCancel(s.baseCtx)

	var notify <-chan int64
	var stopSub func()
	if s.subscribe != nil {
		notify, stopSub = s.subscribe(ctx, mapID)
	}

	watcher := NewWatcher(s.store, mapID, s.cfg.WatchInterval, s.clock, refresh, notify)

	p := &mapPipeline{
		manager: manager,
		surface: surface.New(),
		watcher: watcher,
		sub:     manager.Notifier().Subscribe(),
		cancel:  cancel,
		stopSub: stopSub,
	}
	s.maps[mapID] = p

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		watcher.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		for layer := range p.sub.Layers() {
			s.hub.BroadcastLayer(mapID, layer)
		}
	}()

	slog.Info("Map pipeline created", "map_uuid", mapID.String())
	return p
}

func (s *Service) pipeline(mapID uuid.UUID) *mapPipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maps[mapID]
}

// ActivateMap binds the map surface and replays the latest stored payload
// onto it. Concurrent activations of the same map collapse into one.
func (s *Service) ActivateMap(ctx context.Context, mapID uuid.UUID) error {
	_, err, _ := s.activation.Do(mapID.String(), func() (any, error) {
		s.mu.Lock()
		p := s.ensureLocked(mapID)
		s.mu.Unlock()

		if !p.manager.Bound() {
			p.manager.Bind(p.surface)
			slog.Info("Map surface bound", "map_uuid", mapID.String())
		}

		// Replay: the watcher skipped refreshes while unbound, so the stored
		// revision is still pending.
		p.watcher.Poke()
		return nil, nil
	})
	return err
}

// PushPayload feeds a new collection into the map's input slot.
func (s *Service) PushPayload(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error) {
	s.mu.Lock()
	p := s.ensureLocked(mapID)
	s.mu.Unlock()

	revision, err := s.store.SetLatest(ctx, mapID, fc)
	if err != nil {
		return 0, fmt.Errorf("store payload: %w", err)
	}

	p.watcher.Poke()
	return revision, nil
}

// ResetOverlay replaces the map's overlay with an empty collection. The
// refresh machinery is the same as for any payload: the empty layer installs
// and any reframe on it is suppressed.
func (s *Service) ResetOverlay(ctx context.Context, mapID uuid.UUID) error {
	_, err := s.PushPayload(ctx, mapID, geojson.NewFeatureCollection())
	return err
}

// CurrentLayer returns the map's most recently installed layer.
func (s *Service) CurrentLayer(mapID uuid.UUID) (*domain.RenderedLayer, error) {
	p := s.pipeline(mapID)
	if p == nil {
		return nil, domain.ErrMapNotFound
	}
	layer := p.manager.Current()
	if layer == nil {
		return nil, domain.ErrPayloadNotFound
	}
	return layer, nil
}

// SyncReleves loads the releves matching the filter and pushes them onto the
// map as one payload.
func (s *Service) SyncReleves(ctx context.Context, mapID uuid.UUID, filter domain.ReleveFilter) (int64, error) {
	page, err := s.releves.List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("list releves: %w", err)
	}
	return s.PushPayload(ctx, mapID, page.Items)
}

func (s *Service) ListReleves(ctx context.Context, filter domain.ReleveFilter) (*domain.RelevePage, error) {
	return s.releves.List(ctx, filter)
}

func (s *Service) InsertReleve(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error) {
	return s.releves.Insert(ctx, feature)
}

func (s *Service) DeleteReleve(ctx context.Context, id int64) error {
	return s.releves.Delete(ctx, id)
}

// ReleaseMap tears the map's pipeline down: the watcher stops, the notifier
// closes, and subscribers see their channels close. The stored payload
// survives, so the next activation rebuilds the overlay from it.
func (s *Service) ReleaseMap(mapID uuid.UUID) {
	s.mu.Lock()
	p, ok := s.maps[mapID]
	if ok {
		delete(s.maps, mapID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	p.stop()
	slog.Info("Map pipeline released", "map_uuid", mapID.String())
}

// Stop tears down all pipelines and waits for their goroutines to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	pipelines := make([]*mapPipeline, 0, len(s.maps))
	for mapID, p := range s.maps {
		pipelines = append(pipelines, p)
		delete(s.maps, mapID)
	}
	s.mu.Unlock()

	for _, p := range pipelines {
		p.stop()
	}
	s.cancel()
	s.wg.Wait()
	slog.Info("App service stopped", "released_pipelines", len(pipelines))
}
