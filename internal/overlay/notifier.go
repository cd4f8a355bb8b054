package overlay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

// subscriptionBuffer bounds how many undelivered layers a subscriber can lag
// behind. On overflow the oldest pending layer is dropped: the stream is
// last-value-wins.
const subscriptionBuffer = 8

// Subscription is one observer's handle on a Notifier.
type Subscription struct {
	id       uuid.UUID
	ch       chan *domain.RenderedLayer
	notifier *Notifier
	once     sync.Once
}

// Layers returns the channel on which newly installed layers arrive.
// The channel is closed when the subscription is cancelled or the notifier
// shuts down.
func (s *Subscription) Layers() <-chan *domain.RenderedLayer {
	return s.ch
}

// Unsubscribe detaches the observer. Safe to call more than once and safe to
// call after the notifier has closed.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.remove(s)
	}
	s.once.Do(func() { close(s.ch) })
}

// Notifier fans every newly installed rendered layer out to its subscribers.
//
// Delivery is in subscription order and never blocks: each subscriber gets a
// buffered channel, and a full buffer drops the oldest pending layer in favor
// of the newest. Late subscribers see no past emissions.
type Notifier struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a new observer. After Close it returns a subscription
// whose channel is already closed.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &Subscription{
		id: uuid.New(),
		ch: make(chan *domain.RenderedLayer, subscriptionBuffer),
	}

	if n.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}

	sub.notifier = n
	n.subs = append(n.subs, sub)
	return sub
}

// Emit pushes the layer to all current subscribers in subscription order.
// A no-op after Close.
func (n *Notifier) Emit(layer *domain.RenderedLayer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	for _, sub := range n.subs {
		select {
		case sub.ch <- layer:
		default:
			// Subscriber lagging: evict the oldest pending layer.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- layer:
			default:
			}
		}
	}
	metrics.LayerEmissionsTotal.Inc()
}

// Close terminates the channel. Outstanding subscribers receive no further
// emissions and their channels are closed.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true

	for _, sub := range n.subs {
		sub.notifier = nil
		sub.once.Do(func() { close(sub.ch) })
	}
	n.subs = nil
}

func (n *Notifier) remove(target *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subs {
		if sub.id == target.id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}
