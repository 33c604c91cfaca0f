package reconcile

import (
	"sync"

	"github.com/roach88/wcmove/internal/wc"
)

// spool is a FIFO of notifications produced during one operation.
//
// Notifications are stamped from the spool's clock as they are queued and
// only handed to the caller after the transaction commits. A rolled back
// operation drops its spool, so callers never observe a notification for
// a change that did not happen.
type spool struct {
	mu    sync.Mutex
	clock *Clock
	items []wc.Notification
}

// newSpool creates an empty spool with a fresh clock.
func newSpool() *spool {
	return &spool{
		clock: NewClock(),
		items: make([]wc.Notification, 0, 16),
	}
}

// Enqueue stamps n with the next seq and appends it.
func (s *spool) Enqueue(n wc.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.Seq = s.clock.Next()
	if n.ContentState == "" {
		n.ContentState = wc.StateInapplicable
	}
	if n.PropState == "" {
		n.PropState = wc.StateInapplicable
	}
	s.items = append(s.items, n)
}

// Len returns the number of queued notifications.
func (s *spool) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Drain returns every queued notification in order and empties the spool.
// Returns an empty slice (not nil) when nothing was queued.
func (s *spool) Drain() []wc.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.items
	if out == nil {
		out = []wc.Notification{}
	}
	s.items = nil
	return out
}
