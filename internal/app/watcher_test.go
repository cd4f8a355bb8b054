package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardvergely/GeoNature/internal/domain"
)

// memStore is an in-memory domain.PayloadStore.
type memStore struct {
	mu       sync.Mutex
	payloads map[uuid.UUID]*geojson.FeatureCollection
	revs     map[uuid.UUID]int64
}

func newMemStore() *memStore {
	return &memStore{
		payloads: make(map[uuid.UUID]*geojson.FeatureCollection),
		revs:     make(map[uuid.UUID]int64),
	}
}

func (s *memStore) SetLatest(_ context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revs[mapID]++
	s.payloads[mapID] = fc
	return s.revs[mapID], nil
}

func (s *memStore) GetLatest(_ context.Context, mapID uuid.UUID) (*domain.GeoPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.payloads[mapID]
	if !ok {
		return nil, domain.ErrPayloadNotFound
	}
	return &domain.GeoPayload{Revision: s.revs[mapID], Collection: fc}, nil
}

func (s *memStore) Revision(_ context.Context, mapID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revs[mapID], nil
}

// refreshRecorder counts refresh invocations and controls their outcome.
type refreshRecorder struct {
	mu      sync.Mutex
	calls   []int64
	process bool
}

func (r *refreshRecorder) refresh(_ context.Context, payload *domain.GeoPayload) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, payload.Revision)
	return r.process
}

func (r *refreshRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *refreshRecorder) setProcess(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.process = v
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for range 500 {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWatcherRefreshesOncePerRevision(t *testing.T) {
	store := newMemStore()
	mapID := uuid.New()
	rec := &refreshRecorder{process: true}

	w := NewWatcher(store, mapID, time.Hour, clockwork.NewFakeClock(), rec.refresh, nil)
	startWatcher(t, w)

	_, err := store.SetLatest(context.Background(), mapID, geojson.NewFeatureCollection())
	require.NoError(t, err)

	w.Poke()
	waitFor(t, func() bool { return rec.callCount() == 1 })

	// Same revision again: nothing to do.
	w.Poke()
	w.Poke()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.callCount())
}

func TestWatcherSkipsWhenNoPayloadExists(t *testing.T) {
	store := newMemStore()
	rec := &refreshRecorder{process: true}

	w := NewWatcher(store, uuid.New(), time.Hour, clockwork.NewFakeClock(), rec.refresh, nil)
	startWatcher(t, w)

	w.Poke()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.callCount())
}

func TestWatcherRetriesUnprocessedRevision(t *testing.T) {
	store := newMemStore()
	mapID := uuid.New()
	rec := &refreshRecorder{process: false}

	w := NewWatcher(store, mapID, time.Hour, clockwork.NewFakeClock(), rec.refresh, nil)
	startWatcher(t, w)

	_, err := store.SetLatest(context.Background(), mapID, geojson.NewFeatureCollection())
	require.NoError(t, err)

	// Unprocessed refreshes do not consume the revision.
	w.Poke()
	waitFor(t, func() bool { return rec.callCount() == 1 })
	w.Poke()
	waitFor(t, func() bool { return rec.callCount() == 2 })

	rec.setProcess(true)
	w.Poke()
	waitFor(t, func() bool { return rec.callCount() == 3 })

	w.Poke()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, rec.callCount())
}

func TestWatcherPollsOnTicker(t *testing.T) {
	store := newMemStore()
	mapID := uuid.New()
	rec := &refreshRecorder{process: true}
	clock := clockwork.NewFakeClock()

	w := NewWatcher(store, mapID, 2*time.Second, clock, rec.refresh, nil)
	startWatcher(t, w)

	_, err := store.SetLatest(context.Background(), mapID, geojson.NewFeatureCollection())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(2 * time.Second)
	waitFor(t, func() bool { return rec.callCount() == 1 })
}

func TestWatcherFollowsPushNotifications(t *testing.T) {
	store := newMemStore()
	mapID := uuid.New()
	rec := &refreshRecorder{process: true}
	notify := make(chan int64, 1)

	w := NewWatcher(store, mapID, time.Hour, clockwork.NewFakeClock(), rec.refresh, notify)
	startWatcher(t, w)

	rev, err := store.SetLatest(context.Background(), mapID, geojson.NewFeatureCollection())
	require.NoError(t, err)

	notify <- rev
	waitFor(t, func() bool { return rec.callCount() == 1 })

	// A closed push channel degrades the watcher to polling, not a hot loop.
	close(notify)
	_, err = store.SetLatest(context.Background(), mapID, geojson.NewFeatureCollection())
	require.NoError(t, err)

	w.Poke()
	waitFor(t, func() bool { return rec.callCount() == 2 })
}
