package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

// RefreshFunc applies a payload to the overlay. It reports whether the payload
// was actually processed; an unbound surface returns false so the watcher
// retries the same revision later.
type RefreshFunc func(ctx context.Context, payload *domain.GeoPayload) bool

// Watcher is the explicit change detector for one map's input slot. It
// compares payload store revisions and triggers exactly one refresh per
// distinct revision, in arrival order.
type Watcher struct {
	store    domain.PayloadStore
	mapID    uuid.UUID
	interval time.Duration
	clock    clockwork.Clock
	refresh  RefreshFunc
	notify   <-chan int64
	pokeCh   chan struct{}
	lastRev  int64
}

// NewWatcher creates a watcher. notify is an optional push channel carrying
// revision bumps (e.g. from Redis Pub/Sub); polling covers missed pushes.
func NewWatcher(store domain.PayloadStore, mapID uuid.UUID, interval time.Duration, clock clockwork.Clock, refresh RefreshFunc, notify <-chan int64) *Watcher {
	return &Watcher{
		store:    store,
		mapID:    mapID,
		interval: interval,
		clock:    clock,
		refresh:  refresh,
		notify:   notify,
		pokeCh:   make(chan struct{}, 1),
	}
}

// Poke requests an immediate poll, coalescing with any pending one.
func (w *Watcher) Poke() {
	select {
	case w.pokeCh <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		case <-w.pokeCh:
		case _, ok := <-w.notify:
			if !ok {
				w.notify = nil
				continue
			}
		}
		w.poll(ctx)
	}
}

func (w *Watcher) poll(ctx context.Context) {
	metrics.WatcherPollsTotal.Inc()

	revision, err := w.store.Revision(ctx, w.mapID)
	if err != nil {
		slog.Warn("Revision poll failed", "map_uuid", w.mapID.String(), "error", err)
		return
	}
	if revision == 0 || revision == w.lastRev {
		return
	}

	payload, err := w.store.GetLatest(ctx, w.mapID)
	if err != nil {
		slog.Warn("Payload load failed", "map_uuid", w.mapID.String(), "revision", revision, "error", err)
		return
	}

	if w.refresh(ctx, payload) {
		w.lastRev = payload.Revision
		metrics.WatcherRefreshesTotal.Inc()
	}
}
