package lifecycle

import (
	"sync"

	"design-sandbox-be/internal/entity"

	"github.com/google/uuid"
)

// itemCache holds the full set of items the client has seen, plus the
// currently visible (filtered or search-scoped) view. The full set is
// authoritative for counts and similar-item lookups; the visible list is a
// derived view and carries no authority of its own.
type itemCache struct {
	mu      sync.Mutex
	visible []entity.Item
	all     []entity.Item
}

func newItemCache() *itemCache {
	return &itemCache{}
}

func (c *itemCache) ReplaceVisible(items []entity.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = append([]entity.Item(nil), items...)
}

func (c *itemCache) SetAll(items []entity.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append([]entity.Item(nil), items...)
}

// Upsert merges one item into the visible list (only if already present
// there) and into the full set (appending when new), matching by id.
func (c *itemCache) Upsert(item entity.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.visible {
		if c.visible[i].Id == item.Id {
			c.visible[i] = item
			break
		}
	}

	for i := range c.all {
		if c.all[i].Id == item.Id {
			c.all[i] = item
			return
		}
	}
	c.all = append(c.all, item)
}

func (c *itemCache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = removeByID(c.visible, id)
	c.all = removeByID(c.all, id)
}

func removeByID(items []entity.Item, id uuid.UUID) []entity.Item {
	out := items[:0]
	for _, it := range items {
		if it.Id != id {
			out = append(out, it)
		}
	}
	return out
}

func (c *itemCache) Visible() []entity.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Item(nil), c.visible...)
}

func (c *itemCache) All() []entity.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Item(nil), c.all...)
}

// Find returns the cached item with the given id from the full set, or nil.
func (c *itemCache) Find(id uuid.UUID) *entity.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.all {
		if c.all[i].Id == id {
			item := c.all[i]
			return &item
		}
	}
	return nil
}

// CountsByKey tallies how many items in the full set carry each distinct
// category id and each distinct component key. The mapping is recomputed
// from scratch on every call so it can never drift from the backing set.
func (c *itemCache) CountsByKey() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int)
	for _, it := range c.all {
		if it.CategoryId != "" {
			counts[it.CategoryId]++
		}
		if it.ComponentKey != "" {
			counts[it.ComponentKey]++
		}
	}
	return counts
}
