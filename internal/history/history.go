/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history holds the in-memory undo/redo list of image versions for the
// page currently open in the editor. Index 0 is always the pristine original;
// it is never overwritten for the lifetime of the stack.
package history

import (
	"sync"

	"smartwish/internal/domain"
)

// Stack is an indexed version list with a movable cursor. A new edit discards
// every version after the cursor before appending. Safe for concurrent use.
type Stack struct {
	mu       sync.Mutex
	versions []domain.Image
	index    int
	bytes    int
}

// NewStack seeds a stack with the original, unedited image.
func NewStack(original domain.Image) *Stack {
	base := original.Clone()
	return &Stack{versions: []domain.Image{base}, bytes: len(base.Data)}
}

// Apply truncates forward history and appends a new version, moving the
// cursor onto it.
func (s *Stack) Apply(v domain.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dropped := range s.versions[s.index+1:] {
		s.bytes -= len(dropped.Data)
	}
	s.versions = append(s.versions[:s.index+1], v.Clone())
	s.index = len(s.versions) - 1
	s.bytes += len(v.Data)
}

// Undo moves the cursor one version back. No-op at the baseline.
func (s *Stack) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Redo moves the cursor one version forward. No-op at the newest version.
func (s *Stack) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == len(s.versions)-1 {
		return false
	}
	s.index++
	return true
}

// Reset moves the cursor back to the baseline without truncating forward
// history, so a redo after reset can restore later edits.
func (s *Stack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

// Current returns a copy of the version under the cursor.
func (s *Stack) Current() domain.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[s.index].Clone()
}

// Len reports the number of versions held.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

// Index reports the cursor position.
func (s *Stack) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// HasChanges reports whether the session differs from the pristine original:
// either edits exist beyond the baseline or the cursor is off the baseline.
func (s *Stack) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions) > 1 || s.index > 0
}

// Stats returns the held byte total and version count for diagnostics.
func (s *Stack) Stats() (totalBytes, versions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes, len(s.versions)
}
