// Package escalate holds unresolved human-assist requests keyed by a
// short correlation token until an operator answers them.
package escalate

import (
	"strconv"
	"sync"
	"time"
)

// PendingQuery is one query waiting on an operator reply.
type PendingQuery struct {
	Token       string
	Requester   string
	DisplayName string
	Prompt      string
}

// Queue is an in-memory table of pending queries. Entries have no expiry;
// they are removed only by Resolve or lost on process exit.
type Queue struct {
	mu      sync.Mutex
	pending map[string]PendingQuery
	lastMS  int64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string]PendingQuery)}
}

// Enqueue stores a pending query and returns its correlation token. Tokens
// are base-36 renderings of a strictly monotonic millisecond clock, so they
// stay short and never collide with a currently pending entry.
func (q *Queue) Enqueue(requester, displayName, prompt string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ms := time.Now().UnixMilli()
	if ms <= q.lastMS {
		ms = q.lastMS + 1
	}
	q.lastMS = ms

	token := strconv.FormatInt(ms, 36)
	q.pending[token] = PendingQuery{
		Token:       token,
		Requester:   requester,
		DisplayName: displayName,
		Prompt:      prompt,
	}
	return token, nil
}

// Resolve removes and returns the pending query for token. The boolean is
// false when no entry matches; a token resolves at most once even under
// concurrent resolvers.
func (q *Queue) Resolve(token string) (PendingQuery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pq, ok := q.pending[token]
	if ok {
		delete(q.pending, token)
	}
	return pq, ok
}

// Len returns the number of currently pending queries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
