// Package broadcast propagates the current session state to every interested
// component. Consumers read a snapshot or subscribe for transitions; only the
// session manager publishes.
package broadcast

import (
	"sync"

	"github.com/hansamarket/go-session/session"
)

// Status is the consumer-visible authentication phase. There is no partially
// authenticated status: a session either committed or it did not.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusPending         Status = "pending"
	StatusAuthenticated   Status = "authenticated"
)

// State is what subscribers observe: the phase plus the profile when
// authenticated.
type State struct {
	Status Status
	User   *session.UserProfile
}

// IsAuthenticated is derived from the status, never stored independently.
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// Hub fans the session state out to subscribers. A new subscriber receives
// the current state synchronously; existing subscribers receive transitions
// on their channel with replace-latest semantics, so after a transition has
// committed no subscriber can read a value older than it. Intermediate states
// may be skipped by slow consumers.
type Hub struct {
	mu      sync.Mutex
	current State
	subs    map[int]chan State
	nextID  int
}

// NewHub creates a hub in the unauthenticated state.
func NewHub() *Hub {
	return &Hub{
		current: State{Status: StatusUnauthenticated},
		subs:    make(map[int]chan State),
	}
}

// Current returns a snapshot of the latest published state.
func (h *Hub) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe registers a consumer. The returned channel already carries the
// current state. The cancel function removes the subscription and closes the
// channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan State, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan State, 1)
	ch <- h.current
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish commits a new state and notifies all subscribers. A subscriber that
// has not drained its channel has the stale value replaced rather than
// blocking the publisher.
func (h *Hub) Publish(state State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = state
	for _, ch := range h.subs {
		select {
		case ch <- state:
		default:
			// Channel full: evict the undelivered state, then queue the
			// newest one.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
