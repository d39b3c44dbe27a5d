package display

import (
	"strconv"
	"sync"
	"time"
)

// Nonce produces cache-busting query values: milliseconds since the epoch,
// bumped by one when the clock has not moved so successive values always differ.
type Nonce struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNonce returns a nonce source reading the given clock, or time.Now when nil
func NewNonce(now func() time.Time) *Nonce {
	if now == nil {
		now = time.Now
	}
	return &Nonce{now: now}
}

// Next returns the next query value
func (n *Nonce) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return strconv.FormatInt(ms, 10)
}
