package infrastructure

import (
	"sync"

	"wppserver/internal/interfaces"
)

// SessionRegistry is the single source of truth for which tenants have
// a live driver. It exclusively owns the driver handles; collaborators
// look handles up by tenant id and never retain them across calls.
type SessionRegistry struct {
	mu      sync.RWMutex
	drivers map[string]interfaces.Driver
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		drivers: make(map[string]interfaces.Driver),
	}
}

// Register stores the driver for a tenant. Returns false if the tenant
// already has a live driver, in which case the handle is not replaced.
func (r *SessionRegistry) Register(tenantID string, driver interfaces.Driver) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[tenantID]; exists {
		return false
	}
	r.drivers[tenantID] = driver
	return true
}

// Get returns the live driver for a tenant. Absence is a valid,
// expected state, not an error.
func (r *SessionRegistry) Get(tenantID string) (interfaces.Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	driver, ok := r.drivers[tenantID]
	return driver, ok
}

// Unregister removes the tenant's driver and returns it so the caller
// can tear it down. Removing an absent tenant is a no-op.
func (r *SessionRegistry) Unregister(tenantID string) (interfaces.Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	driver, ok := r.drivers[tenantID]
	if ok {
		delete(r.drivers, tenantID)
	}
	return driver, ok
}

// TenantIDs returns the ids of all tenants with a registered session.
func (r *SessionRegistry) TenantIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.drivers))
	for id := range r.drivers {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drivers)
}
