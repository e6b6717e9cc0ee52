// Package blockcache implements the coordinate-indexed observed-block map
// (C7): one writer (environment refresh), many readers (nearby-block
// query, the crafting planner's table lookup).
package blockcache

import (
	"sync"
	"time"

	"github.com/l1jgo/mcagent/internal/geo"
)

// CachedBlock is one observed block. Equality and identity are by Position
// only; BlockType/CanSee/timestamps/SeenCount mutate in place as the same
// position is re-observed.
type CachedBlock struct {
	BlockType string
	Position  geo.BlockPosition
	CanSee    bool
	FirstSeen time.Time
	LastSeen  time.Time
	SeenCount int
}

// Cache is a hash map from integer block position to CachedBlock, safe for
// concurrent use (one writer, many readers per §5).
type Cache struct {
	mu     sync.RWMutex
	blocks map[geo.BlockPosition]*CachedBlock
	now    func() time.Time
}

// NewCache returns an empty Cache. nowFn defaults to time.Now when nil, and
// exists only so tests can inject a fixed clock.
func NewCache(nowFn func() time.Time) *Cache {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Cache{blocks: make(map[geo.BlockPosition]*CachedBlock), now: nowFn}
}

// Add inserts or updates the block at pos. A new position is inserted with
// SeenCount=1; an existing position has LastSeen refreshed, SeenCount
// incremented, CanSee OR'd in, and BlockType overwritten (type conflicts on
// the same position replace the stored type, matching the live game truth).
func (c *Cache) Add(blockType string, pos geo.BlockPosition, canSee bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	existing, ok := c.blocks[pos]
	if !ok {
		c.blocks[pos] = &CachedBlock{
			BlockType: blockType,
			Position:  pos,
			CanSee:    canSee,
			FirstSeen: now,
			LastSeen:  now,
			SeenCount: 1,
		}
		return
	}
	existing.BlockType = blockType
	existing.LastSeen = now
	existing.SeenCount++
	existing.CanSee = existing.CanSee || canSee
}

// Get returns the cached block at pos, if known.
func (c *Cache) Get(pos geo.BlockPosition) (CachedBlock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[pos]
	if !ok {
		return CachedBlock{}, false
	}
	return *b, true
}

// BlocksInRange returns every cached block within Euclidean distance r of
// center.
func (c *Cache) BlocksInRange(center geo.BlockPosition, r float64) []CachedBlock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CachedBlock, 0)
	for pos, b := range c.blocks {
		if pos.Distance(center) <= r {
			out = append(out, *b)
		}
	}
	return out
}

// Len returns the number of cached positions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// HasNearbyType reports whether a block of the given type exists within
// radius r of center — used by the crafting planner to detect a nearby
// crafting table.
func (c *Cache) HasNearbyType(center geo.BlockPosition, r float64, blockType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for pos, b := range c.blocks {
		if b.BlockType == blockType && pos.Distance(center) <= r {
			return true
		}
	}
	return false
}
