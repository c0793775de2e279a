// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package netcache is a bounded least-recently-used cache with a
// time-to-live, shared by the network tools.
package netcache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is the interface network tools depend on.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Len() int
}

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// LRU is a mutex-guarded LRU cache. Its length never exceeds its capacity;
// a capacity of zero stores nothing.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      Clock
	order    *list.List
	items    map[string]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures an LRU.
type Option[V any] func(*LRU[V])

// WithClock replaces time.Now.
func WithClock[V any](clock Clock) Option[V] {
	return func(c *LRU[V]) { c.now = clock }
}

// New returns a cache holding at most capacity entries, each valid for ttl.
// A ttl of zero never expires entries.
func New[V any](capacity int, ttl time.Duration, opts ...Option[V]) *LRU[V] {
	if capacity < 0 {
		capacity = 0
	}
	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a live entry and marks it most recently used. Expired entries
// are removed.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e) {
		c.removeElement(el)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting least recently used entries to make
// room.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity == 0 {
		return
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Back())
		c.evictions++
	}
	el := c.order.PushFront(&entry[V]{key: key, value: value, storedAt: c.now()})
	c.items[key] = el
}

// Delete removes key.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns the current counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   c.order.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *LRU[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

func (c *LRU[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
