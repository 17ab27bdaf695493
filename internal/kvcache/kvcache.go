/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package kvcache is the ephemeral metadata store of the edit core: a bounded,
// synchronous, string-only map. It carries small JSON state blobs, never image
// bytes, so a write always completes within the caller's execution turn. Once
// the byte budget is exhausted further writes are dropped; callers must not
// depend on this cache for correctness.
package kvcache

import (
	"sync"

	"smartwish/internal/domain"
)

// DefaultMaxBytes mirrors the practical budget of a browser sessionStorage
// slice once the host page has taken its share.
const DefaultMaxBytes = 512 * 1024

// Cache is a capacity-bounded string map keyed by composite page key.
// Safe for concurrent use; every operation is synchronous.
type Cache struct {
	mu       sync.Mutex
	items    map[domain.Key]string
	maxBytes int
	bytes    int
}

// New creates a cache with the given byte budget. A non-positive budget
// falls back to DefaultMaxBytes.
func New(maxBytes int) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Cache{items: make(map[domain.Key]string), maxBytes: maxBytes}
}

// Put stores a metadata string. It reports false when the write was dropped
// because the budget would be exceeded; the cache is unchanged in that case.
func (c *Cache) Put(key domain.Key, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.bytes + len(key) + len(value)
	if prev, ok := c.items[key]; ok {
		next -= len(key) + len(prev)
	}
	if next > c.maxBytes {
		return false
	}
	c.items[key] = value
	c.bytes = next
	return true
}

// Get returns the stored metadata string, if any.
func (c *Cache) Get(key domain.Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Remove deletes the entry. No-op if absent.
func (c *Cache) Remove(key domain.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.items[key]; ok {
		c.bytes -= len(key) + len(prev)
		delete(c.items, key)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[domain.Key]string)
	c.bytes = 0
}

// Stats returns held bytes and entry count for diagnostics.
func (c *Cache) Stats() (bytes, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes, len(c.items)
}
