package crawlers

import (
	"context"
	"sync"
	"time"
)

// ringPollInterval bounds how long Next sleeps between checks of an empty
// ring.
const ringPollInterval = 50 * time.Millisecond

// Ring hands out crawler IDs round-robin. Next rotates the popped ID to the
// back so every member gets a turn, and blocks up to a timeout when the
// ring is empty.
type Ring struct {
	mu      sync.Mutex
	ids     []string
	members map[string]struct{}
}

func NewRing() *Ring {
	return &Ring{members: make(map[string]struct{})}
}

// Add appends an ID unless it is already a member.
func (r *Ring) Add(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; ok {
		return
	}
	r.members[id] = struct{}{}
	r.ids = append(r.ids, id)
}

// Remove drops an ID from the rotation.
func (r *Ring) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	for i, member := range r.ids {
		if member == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
}

// Contains reports ring membership.
func (r *Ring) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[id]
	return ok
}

// Members returns a snapshot of the rotation.
func (r *Ring) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the rotation size.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// Next returns the next ID in the rotation, waiting up to timeout for the
// ring to become non-empty. The second return is false on timeout or
// context cancellation.
func (r *Ring) Next(ctx context.Context, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		r.mu.Lock()
		if len(r.ids) > 0 {
			id := r.ids[0]
			r.ids = append(r.ids[1:], id)
			r.mu.Unlock()
			return id, true
		}
		r.mu.Unlock()

		if time.Now().After(deadline) {
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(ringPollInterval):
		}
	}
}
