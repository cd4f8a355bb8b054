package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/websocket"
)

func collectionBody(t *testing.T) string {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{6.1, 44.6}))
	body, err := fc.MarshalJSON()
	require.NoError(t, err)
	return string(body)
}

func TestPushPayload(t *testing.T) {
	mapID := uuid.New()
	var gotMap uuid.UUID
	var gotFeatures int
	app := &fakeApp{
		pushPayload: func(_ context.Context, id uuid.UUID, fc *geojson.FeatureCollection) (int64, error) {
			gotMap = id
			gotFeatures = len(fc.Features)
			return 5, nil
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "POST", "/api/maps/"+mapID.String()+"/payload", collectionBody(t))
	require.Equal(t, 202, rec.Code)
	assert.Equal(t, mapID, gotMap)
	assert.Equal(t, 1, gotFeatures)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 5, resp["revision"])
}

func TestPushPayloadRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, &fakeApp{})

	rec := doRequest(srv, "POST", "/api/maps/not-a-uuid/payload", collectionBody(t))
	assert.Equal(t, 400, rec.Code)

	rec = doRequest(srv, "POST", "/api/maps/"+uuid.NewString()+"/payload", "{broken")
	assert.Equal(t, 400, rec.Code)
}

func TestCurrentLayer(t *testing.T) {
	layer := &domain.RenderedLayer{
		ID:       uuid.New(),
		Revision: 3,
		Features: geojson.NewFeatureCollection(),
	}
	app := &fakeApp{
		currentLayer: func(uuid.UUID) (*domain.RenderedLayer, error) { return layer, nil },
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "GET", "/api/maps/"+uuid.NewString()+"/layer", "")
	require.Equal(t, 200, rec.Code)

	var update websocket.LayerUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &update))
	assert.Equal(t, layer.ID.String(), update.LayerID)
	assert.Equal(t, int64(3), update.Revision)
}

func TestCurrentLayerNotFound(t *testing.T) {
	app := &fakeApp{
		currentLayer: func(uuid.UUID) (*domain.RenderedLayer, error) { return nil, domain.ErrMapNotFound },
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "GET", "/api/maps/"+uuid.NewString()+"/layer", "")
	assert.Equal(t, 404, rec.Code)
}

func TestCurrentLayerNoPayloadYet(t *testing.T) {
	app := &fakeApp{
		currentLayer: func(uuid.UUID) (*domain.RenderedLayer, error) { return nil, domain.ErrPayloadNotFound },
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "GET", "/api/maps/"+uuid.NewString()+"/layer", "")
	assert.Equal(t, 404, rec.Code)
}

func TestResetOverlay(t *testing.T) {
	var gotMap uuid.UUID
	app := &fakeApp{
		resetOverlay: func(_ context.Context, id uuid.UUID) error {
			gotMap = id
			return nil
		},
	}
	srv := newTestServer(t, app)
	mapID := uuid.New()

	rec := doRequest(srv, "POST", "/api/maps/"+mapID.String()+"/reset", "")
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, mapID, gotMap)
}

func TestSyncReleves(t *testing.T) {
	var gotFilter domain.ReleveFilter
	app := &fakeApp{
		syncReleves: func(_ context.Context, _ uuid.UUID, filter domain.ReleveFilter) (int64, error) {
			gotFilter = filter
			return 2, nil
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "POST", "/api/maps/"+uuid.NewString()+"/sync?cd_nom=60015", "")
	require.Equal(t, 202, rec.Code)
	assert.Equal(t, int64(60015), gotFilter.TaxonCode)
}

func TestInternalErrorsReturn500(t *testing.T) {
	app := &fakeApp{
		resetOverlay: func(context.Context, uuid.UUID) error { return errors.New("redis down") },
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, "POST", "/api/maps/"+uuid.NewString()+"/reset", "")
	assert.Equal(t, 500, rec.Code)
}
