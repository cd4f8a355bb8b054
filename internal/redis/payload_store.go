package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	goredis "github.com/redis/go-redis/v9"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

func payloadKey(mapID uuid.UUID) string {
	return "payload:" + mapID.String()
}

func revisionKey(mapID uuid.UUID) string {
	return "payload:" + mapID.String() + ":rev"
}

func revisionChannel(mapID uuid.UUID) string {
	return "payloads:" + mapID.String()
}

// PayloadStore implements domain.PayloadStore on Redis.
type PayloadStore struct {
	rdb *goredis.Client
}

func NewPayloadStore(client *Client) *PayloadStore {
	return &PayloadStore{rdb: client.rdb}
}

// SetLatest stores the collection, bumps the revision counter, and publishes
// the new revision on the map's channel. The SET and INCR run in one
// transaction so readers never see a payload without its revision bump.
func (s *PayloadStore) SetLatest(ctx context.Context, mapID uuid.UUID, fc *geojson.FeatureCollection) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.PayloadStoreOpDuration.WithLabelValues("set_latest").Observe(time.Since(start).Seconds())
	}()

	data, err := fc.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, payloadKey(mapID), data, 0)
	incr := pipe.Incr(ctx, revisionKey(mapID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("store payload: %w", err)
	}

	revision := incr.Val()
	if err := s.rdb.Publish(ctx, revisionChannel(mapID), revision).Err(); err != nil {
		// Watchers will still pick the revision up on their next poll.
		slog.Warn("Failed to publish revision bump", "map_uuid", mapID.String(), "revision", revision, "error", err)
	}
	return revision, nil
}

// GetLatest returns the newest payload for the map.
func (s *PayloadStore) GetLatest(ctx context.Context, mapID uuid.UUID) (*domain.GeoPayload, error) {
	start := time.Now()
	defer func() {
		metrics.PayloadStoreOpDuration.WithLabelValues("get_latest").Observe(time.Since(start).Seconds())
	}()

	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, payloadKey(mapID))
	rev := pipe.Get(ctx, revisionKey(mapID))
	if _, err := pipe.Exec(ctx); err != nil {
		if err == goredis.Nil {
			return nil, domain.ErrPayloadNotFound
		}
		return nil, fmt.Errorf("load payload: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection([]byte(get.Val()))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	revision, err := strconv.ParseInt(rev.Val(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse revision %q: %w", rev.Val(), err)
	}

	return &domain.GeoPayload{Revision: revision, Collection: fc}, nil
}

// Revision returns the map's current revision, 0 when no payload exists.
func (s *PayloadStore) Revision(ctx context.Context, mapID uuid.UUID) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.PayloadStoreOpDuration.WithLabelValues("revision").Observe(time.Since(start).Seconds())
	}()

	revision, err := s.rdb.Get(ctx, revisionKey(mapID)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load revision: %w", err)
	}
	return revision, nil
}

// RevisionSubscription receives revision bumps for one map.
type RevisionSubscription struct {
	sub    *goredis.PubSub
	Ch     <-chan int64
	cancel context.CancelFunc
}

// Close unsubscribes and stops the forwarding goroutine.
func (s *RevisionSubscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// SubscribeRevisions subscribes to revision bumps for a map. Slow receivers
// miss intermediate revisions; only staying current matters.
func (s *PayloadStore) SubscribeRevisions(ctx context.Context, mapID uuid.UUID) *RevisionSubscription {
	sub := s.rdb.Subscribe(ctx, revisionChannel(mapID))

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan int64, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				revision, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					slog.Warn("Ignoring malformed revision message", "payload", msg.Payload, "error", err)
					continue
				}
				select {
				case ch <- revision:
				default:
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &RevisionSubscription{sub: sub, Ch: ch, cancel: cancel}
}
