package utils

import (
	"sync"
	"time"
)

// Deduplicator remembers recently seen IDs
type Deduplicator struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	window   time.Duration
	maxItems int
	now      func() time.Time
}

// NewDeduplicator creates a deduplicator that treats an ID as a duplicate for
// window after it was first seen
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Deduplicator{
		seen:     make(map[string]time.Time),
		window:   window,
		maxItems: 10000,
		now:      time.Now,
	}
}

// IsDuplicate checks if an ID has been processed within the window.
// Returns true if the message is a duplicate and should be ignored
func (d *Deduplicator) IsDuplicate(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if ts, exists := d.seen[id]; exists && now.Sub(ts) < d.window {
		return true
	}
	d.seen[id] = now

	// Cleanup old entries if map gets too big
	if len(d.seen) > d.maxItems {
		for k, v := range d.seen {
			if now.Sub(v) > 2*d.window {
				delete(d.seen, k)
			}
		}
	}
	return false
}
