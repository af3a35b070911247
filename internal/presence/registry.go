// Package presence tracks which users currently hold at least one live
// connection to this process.
package presence

import "sync"

// Registry counts live connections per user. It is the source of truth for
// "is this user reachable right now" and is mutated only by the session
// lifecycle: every MarkOnline is paired with a MarkOffline on disconnect.
// It deliberately does not know which sessions contributed to a count.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// MarkOnline records one more live connection for user and returns the
// resulting count.
func (r *Registry) MarkOnline(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[userID]++
	return r.counts[userID]
}

// MarkOffline records one connection gone and returns the resulting count.
// The entry is removed once the count reaches zero, so absence and zero are
// the same state. Counts clamp at zero to tolerate mismatched call ordering.
func (r *Registry) MarkOffline(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.counts[userID] - 1
	if count <= 0 {
		delete(r.counts, userID)
		return 0
	}
	r.counts[userID] = count
	return count
}

// IsOnline reports whether user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.counts[userID]
	return ok
}
