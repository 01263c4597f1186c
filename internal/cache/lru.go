// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package cache

import (
	"context"
	"sync"
	"time"
)

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRU is a thread-safe in-process Store with per-entry TTL and an optional
// size bound. Expired entries are removed lazily on access and by Purge.
//
// Entries live in a doubly linked list between two sentinels: head.next is
// the most recently used entry, tail.prev the eviction candidate.
type LRU struct {
	mu       sync.Mutex
	capacity int // 0 = unbounded
	ttl      time.Duration
	items    map[string]*lruEntry
	head     *lruEntry
	tail     *lruEntry
	now      func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// NewLRU creates an LRU with the given default TTL. capacity <= 0 disables
// the size bound.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity < 0 {
		capacity = 0
	}
	c := &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get implements Store. A hit refreshes recency.
func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.unlink(e)
		c.evictions++
		c.misses++
		return nil, false, nil
	}
	c.unlinkList(e)
	c.pushFront(e)
	c.hits++
	return e.value, true, nil
}

// Set implements Store. ttl <= 0 uses the default TTL.
func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.unlinkList(e)
		c.pushFront(e)
		return nil
	}

	e := &lruEntry{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(e)
	c.items[key] = e
	for c.capacity > 0 && len(c.items) > c.capacity {
		c.unlink(c.tail.prev)
		c.evictions++
	}
	return nil
}

// Delete implements Store.
func (c *LRU) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.unlink(e)
	}
	return nil
}

// Purge drops every expired entry and returns how many were removed.
func (c *LRU) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.unlink(e)
			removed++
		}
		e = prev
	}
	c.evictions += int64(removed)
	return removed
}

// Len returns the number of stored entries, including not yet purged expired ones.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit/miss/eviction counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Entries: len(c.items)}
}

// list helpers, mu must be held

func (c *LRU) pushFront(e *lruEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU) unlinkList(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRU) unlink(e *lruEntry) {
	c.unlinkList(e)
	delete(c.items, e.key)
}

var _ Store = (*LRU)(nil)
