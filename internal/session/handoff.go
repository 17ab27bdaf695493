/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package session

import (
	"sync"
	"time"

	"smartwish/internal/domain"
)

// HandoffSlot passes a freshly edited image between two editor views in the
// same process without a remote round trip. One payload per key; a payload is
// only honored within the freshness window, so abandoned leftovers from a
// previous shopper are never restored.
type HandoffSlot struct {
	mu      sync.Mutex
	entries map[domain.Key]handoffEntry
}

type handoffEntry struct {
	payload string // data-URL text encoding
	at      time.Time
}

// NewHandoffSlot creates an empty slot.
func NewHandoffSlot() *HandoffSlot {
	return &HandoffSlot{entries: make(map[domain.Key]handoffEntry)}
}

// Publish stores a handoff payload for key, replacing any previous one.
func (h *HandoffSlot) Publish(key domain.Key, payload string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[key] = handoffEntry{payload: payload, at: at}
}

// Take removes and returns the payload for key if it was published within
// the freshness window ending at now. Stale payloads are discarded either way.
func (h *HandoffSlot) Take(key domain.Key, now time.Time, freshness time.Duration) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[key]
	if !ok {
		return "", false
	}
	delete(h.entries, key)
	if now.Sub(e.at) >= freshness {
		return "", false
	}
	return e.payload, true
}

// Discard drops any payload for key.
func (h *HandoffSlot) Discard(key domain.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, key)
}
