package infrastructure

import (
	"sync"
	"time"
)

type qrEntry struct {
	code     string
	issuedAt time.Time
}

// QRCache keeps the latest pairing challenge per tenant so a subscriber
// joining after the challenge was issued can still receive it.
// Latest wins: each new challenge overwrites the previous one.
type QRCache struct {
	mu      sync.RWMutex
	entries map[string]qrEntry
}

func NewQRCache() *QRCache {
	return &QRCache{entries: make(map[string]qrEntry)}
}

func (c *QRCache) Store(tenantID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = qrEntry{code: code, issuedAt: time.Now()}
}

// Latest returns the cached challenge for a tenant, or "" when none is
// cached.
func (c *QRCache) Latest(tenantID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[tenantID].code
}

// Invalidate drops the cached challenge. Called once a session reaches
// Authenticated so a stale challenge is never replayed to new
// subscribers after pairing succeeded.
func (c *QRCache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}
