package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist is the single-instance Denylist used when Redis is not
// configured. Expired entries are dropped lazily.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	if until.After(d.now()) {
		d.revoked[jti] = until
	}
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.revoked[jti]
	return ok && until.After(d.now()), nil
}

func (d *MemoryDenylist) sweepLocked() {
	now := d.now()
	for jti, until := range d.revoked {
		if !until.After(now) {
			delete(d.revoked, jti)
		}
	}
}
