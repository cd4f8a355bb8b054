package overlay

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardvergely/GeoNature/internal/domain"
)

func testLayer(revision int64) *domain.RenderedLayer {
	return &domain.RenderedLayer{ID: uuid.New(), Revision: revision}
}

func TestNotifierDeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier()
	first := n.Subscribe()
	second := n.Subscribe()

	layer := testLayer(1)
	n.Emit(layer)

	assert.Same(t, layer, <-first.Layers())
	assert.Same(t, layer, <-second.Layers())
}

func TestLateSubscribersGetNoReplay(t *testing.T) {
	n := NewNotifier()
	n.Emit(testLayer(1))

	sub := n.Subscribe()
	assert.Empty(t, sub.Layers())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()
	keeper := n.Subscribe()

	sub.Unsubscribe()
	n.Emit(testLayer(1))

	_, open := <-sub.Layers()
	assert.False(t, open, "unsubscribed channel must be closed")
	require.Len(t, keeper.Layers(), 1)
}

func TestCloseTerminatesChannel(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()

	n.Close()

	_, open := <-sub.Layers()
	assert.False(t, open)

	// Emit after close is a no-op, Close is idempotent.
	n.Emit(testLayer(1))
	n.Close()

	late := n.Subscribe()
	_, open = <-late.Layers()
	assert.False(t, open, "subscriptions after close are already completed")
}

func TestSlowSubscriberKeepsNewestLayers(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()

	total := subscriptionBuffer + 2
	for i := 1; i <= total; i++ {
		n.Emit(testLayer(int64(i)))
	}

	require.Len(t, sub.Layers(), subscriptionBuffer)
	first := <-sub.Layers()
	assert.Equal(t, int64(3), first.Revision, "oldest pending layers are dropped")

	var last *domain.RenderedLayer
	for len(sub.Layers()) > 0 {
		last = <-sub.Layers()
	}
	assert.Equal(t, int64(total), last.Revision, "newest layer always survives")
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()

	sub.Unsubscribe()
	sub.Unsubscribe()

	n.Close()
}
