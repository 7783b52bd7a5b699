package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist is an in-process denylist with per-entry expiry.
type MemoryDenylist struct {
	mu    sync.RWMutex
	items map[string]time.Time
	now   func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{items: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !until.After(d.now()) {
		return nil
	}
	d.items[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	until, ok := d.items[tokenID]
	if !ok {
		return false, nil
	}
	return d.now().Before(until), nil
}

// Cleanup drops expired entries.
func (d *MemoryDenylist) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.items {
		if !now.Before(until) {
			delete(d.items, id)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (d *MemoryDenylist) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Cleanup()
			}
		}
	}()
}
