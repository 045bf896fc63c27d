// Package engage counts inbound messages per conversation to drive
// automatic promotion into the permission store.
package engage

import "sync"

// Tracker holds per-conversation message counts for the current process
// lifetime. Counts only ever grow. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Record increments the counter for the conversation and returns the new
// count. It never fails.
func (t *Tracker) Record(conversationID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[conversationID]++
	return t.counts[conversationID]
}

// Count returns the current count without incrementing.
func (t *Tracker) Count(conversationID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[conversationID]
}
