package server

import (
	"context"
	"sync"

	"github.com/leapstack-labs/starfleet/internal/game"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 64

// Notifier fans game events out to live subscribers. It is a game.Observer
// so games started by the server publish through it.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan game.Event]string
}

var _ game.Observer = (*Notifier)(nil)

// NewNotifier creates a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan game.Event]string),
	}
}

// Subscribe returns a channel receiving the events of gameID, or of every
// game when gameID is empty. The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(gameID string) chan game.Event {
	ch := make(chan game.Event, subscriberBuffer)
	n.mu.Lock()
	n.listeners[ch] = gameID
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan game.Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// OnEvent broadcasts e. Subscribers whose buffer is full miss the event;
// streams fill such gaps from the store.
func (n *Notifier) OnEvent(_ context.Context, e game.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, gameID := range n.listeners {
		if gameID != "" && gameID != e.GameID {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
