package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQRCacheLatestWins(t *testing.T) {
	c := NewQRCache()

	c.Store("tenant-1", "FIRST")
	c.Store("tenant-1", "SECOND")

	assert.Equal(t, "SECOND", c.Latest("tenant-1"))
}

func TestQRCacheIsolatedPerTenant(t *testing.T) {
	c := NewQRCache()

	c.Store("tenant-1", "A")
	c.Store("tenant-2", "B")

	assert.Equal(t, "A", c.Latest("tenant-1"))
	assert.Equal(t, "B", c.Latest("tenant-2"))
}

func TestQRCacheEmptyWhenAbsent(t *testing.T) {
	c := NewQRCache()
	assert.Empty(t, c.Latest("ghost"))
}

func TestQRCacheInvalidate(t *testing.T) {
	c := NewQRCache()
	c.Store("tenant-1", "CODE")

	c.Invalidate("tenant-1")
	assert.Empty(t, c.Latest("tenant-1"))

	// Invalidating an empty entry is a no-op.
	c.Invalidate("tenant-1")
	assert.Empty(t, c.Latest("tenant-1"))
}
