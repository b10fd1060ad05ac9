package slack

import (
	"context"
	"sync"
	"time"
)

// Deduper remembers event ids for a TTL. The set never grows past maxKeys.
type Deduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxKeys int
	seen    map[string]time.Time
	now     func() time.Time
}

func NewDeduper(ttl time.Duration, maxKeys int) *Deduper {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &Deduper{ttl: ttl, maxKeys: maxKeys, seen: map[string]time.Time{}, now: time.Now}
}

// Seen records id and reports whether it was already recorded within the TTL.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[id]; ok && now.Sub(at) <= d.ttl {
		return true
	}
	if len(d.seen) >= d.maxKeys {
		d.sweepLocked(now)
	}
	if len(d.seen) >= d.maxKeys {
		d.evictOldestLocked()
	}
	d.seen[id] = now
	return false
}

// Forget removes id so a redelivery of the same event is processed again.
func (d *Deduper) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Sweep drops expired ids and returns how many were removed.
func (d *Deduper) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sweepLocked(d.now())
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Run sweeps every interval until ctx is done.
func (d *Deduper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = d.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Sweep()
		}
	}
}

func (d *Deduper) sweepLocked(now time.Time) int {
	removed := 0
	for id, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}

func (d *Deduper) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, at := range d.seen {
		if oldestID == "" || at.Before(oldestAt) {
			oldestID, oldestAt = id, at
		}
	}
	delete(d.seen, oldestID)
}
