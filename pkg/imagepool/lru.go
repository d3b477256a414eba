// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package imagepool

import (
	"container/list"
)

// blobLRU is a bounded ref -> blob cache with least-recently-used
// eviction. Purely a read-through performance layer: losing its contents
// never loses data, since every entry can be rebuilt from the store.
//
// Thread Safety: NOT safe for concurrent use; the owning Pool holds its
// lock around every call.
type blobLRU struct {
	capacity  int
	evictList *list.List
	items     map[Ref]*list.Element
}

// lruEntry stores the key alongside the value so tail eviction can
// remove the map entry in O(1).
type lruEntry struct {
	ref  Ref
	blob []byte
}

func newBlobLRU(capacity int) *blobLRU {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &blobLRU{
		capacity:  capacity,
		evictList: list.New(),
		items:     make(map[Ref]*list.Element),
	}
}

// get returns the cached blob and promotes it to most-recently-used.
func (c *blobLRU) get(ref Ref) ([]byte, bool) {
	elem, ok := c.items[ref]
	if !ok {
		return nil, false
	}
	c.evictList.MoveToFront(elem)
	return elem.Value.(*lruEntry).blob, true
}

// add inserts or updates ref, promoting it to most-recently-used, and
// evicts the least-recently-used entry when over capacity. Returns the
// ref of the evicted entry, if any.
func (c *blobLRU) add(ref Ref, blob []byte) (evicted Ref, ok bool) {
	if elem, exists := c.items[ref]; exists {
		c.evictList.MoveToFront(elem)
		elem.Value.(*lruEntry).blob = blob
		return "", false
	}

	elem := c.evictList.PushFront(&lruEntry{ref: ref, blob: blob})
	c.items[ref] = elem

	if c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		if oldest != nil {
			ent := oldest.Value.(*lruEntry)
			c.removeElement(oldest)
			return ent.ref, true
		}
	}
	return "", false
}

// remove drops ref from the cache without touching recency of others.
func (c *blobLRU) remove(ref Ref) bool {
	elem, ok := c.items[ref]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// clear drops every entry.
func (c *blobLRU) clear() {
	c.evictList.Init()
	c.items = make(map[Ref]*list.Element)
}

// len returns the number of cached entries.
func (c *blobLRU) len() int {
	return c.evictList.Len()
}

// contains reports presence without promoting.
func (c *blobLRU) contains(ref Ref) bool {
	_, ok := c.items[ref]
	return ok
}

func (c *blobLRU) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).ref)
}
