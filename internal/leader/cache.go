// Package leader implements the per-node LeaderCache and the
// LeaderResolver/call_with_retry client protocol of §4.4/§4.5.
package leader

import (
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/pkg/cmap"
)

// Cache is the process-local, non-replicated mapping GroupName -> believed
// leader handle (§3, §4.4). Entries are hints: stale reads are expected,
// eviction is opportunistic on RPC failure.
type Cache struct {
	m *cmap.Map[domain.GroupName, domain.ReplicaRef]
}

// NewCache constructs an empty LeaderCache.
func NewCache() *Cache {
	return &Cache{m: cmap.New[domain.GroupName, domain.ReplicaRef]()}
}

// Get returns the cached leader handle for name, if any.
func (c *Cache) Get(name domain.GroupName) (domain.ReplicaRef, bool) {
	return c.m.Get(name)
}

// Set records a believed leader handle, overwriting any prior value.
func (c *Cache) Set(name domain.GroupName, ref domain.ReplicaRef) {
	c.m.Set(name, ref)
}

// Unset evicts a cache entry, typically after an RPC failure against it.
func (c *Cache) Unset(name domain.GroupName) {
	c.m.Delete(name)
}

// Len reports the number of cached entries, used by CacheRefresher to size
// its refresh pass.
func (c *Cache) Len() int {
	return c.m.Count()
}

// Entries snapshots the current GroupName -> ReplicaRef pairs, for
// CacheRefresher to walk (§4.8).
func (c *Cache) Entries() map[domain.GroupName]domain.ReplicaRef {
	items := c.m.Items()
	out := make(map[domain.GroupName]domain.ReplicaRef, len(items))
	for _, it := range items {
		out[it.Key] = it.Value
	}
	return out
}
