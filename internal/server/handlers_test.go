package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/config"
	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/websocket"
)

// fakeApp implements domain.AppService with overridable behavior per test.
type fakeApp struct {
	pushPayload  func(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error)
	resetOverlay func(ctx context.Context, mapID uuid.UUID) error
	currentLayer func(mapID uuid.UUID) (*domain.RenderedLayer, error)
	syncReleves  func(ctx context.Context, mapID uuid.UUID, filter domain.ReleveFilter) (int64, error)
	listReleves  func(ctx context.Context, filter domain.ReleveFilter) (*domain.RelevePage, error)
	insertReleve func(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error)
	deleteReleve func(ctx context.Context, id int64) error
	activateMap  func(ctx context.Context, mapID uuid.UUID) error
}

func (f *fakeApp) EnsureMap(uuid.UUID) {}

func (f *fakeApp) PushPayload(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error) {
	if f.pushPayload != nil {
		return f.pushPayload(ctx, mapID, fc)
	}
	return 1, nil
}

func (f *fakeApp) ResetOverlay(ctx context.Context, mapID uuid.UUID) error {
	if f.resetOverlay != nil {
		return f.resetOverlay(ctx, mapID)
	}
	return nil
}

func (f *fakeApp) CurrentLayer(mapID uuid.UUID) (*domain.RenderedLayer, error) {
	if f.currentLayer != nil {
		return f.currentLayer(mapID)
	}
	return nil, domain.ErrMapNotFound
}

func (f *fakeApp) SyncReleves(ctx context.Context, mapID uuid.UUID, filter domain.ReleveFilter) (int64, error) {
	if f.syncReleves != nil {
		return f.syncReleves(ctx, mapID, filter)
	}
	return 1, nil
}

func (f *fakeApp) ListReleves(ctx context.Context, filter domain.ReleveFilter) (*domain.RelevePage, error) {
	if f.listReleves != nil {
		return f.listReleves(ctx, filter)
	}
	return &domain.RelevePage{Items: geojson.NewFeatureCollection()}, nil
}

func (f *fakeApp) InsertReleve(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error) {
	if f.insertReleve != nil {
		return f.insertReleve(ctx, feature)
	}
	return feature, nil
}

func (f *fakeApp) DeleteReleve(ctx context.Context, id int64) error {
	if f.deleteReleve != nil {
		return f.deleteReleve(ctx, id)
	}
	return nil
}

func (f *fakeApp) ActivateMap(ctx context.Context, mapID uuid.UUID) error {
	if f.activateMap != nil {
		return f.activateMap(ctx, mapID)
	}
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, app *fakeApp) *Server {
	t.Helper()
	return newTestServerWithPingers(t, app, stubPinger{}, stubPinger{})
}

func newTestServerWithPingers(t *testing.T, app *fakeApp, redis, db pinger) *Server {
	t.Helper()

	hub := websocket.NewHub(nil, nil, clockwork.NewRealClock(), 10)
	t.Cleanup(hub.Stop)

	cfg := &config.Config{Port: "8080"}
	return NewServer(cfg, app, hub, redis, db)
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
