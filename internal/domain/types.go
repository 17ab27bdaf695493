/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the SmartWish edit core: card
// templates, page identities, and the durable shadow record each editing
// session writes while a page is being retouched.

import (
	"errors"
	"fmt"
	"time"
)

// TemplateID identifies a card template (the design a shopper is editing).
type TemplateID string

// PageIndex addresses a single editable page within a template.
// Front is 0; inside and back pages follow in print order.
type PageIndex int

// Key is the composite cache key for a (template, page) pair. All stores in
// the edit core are keyed by it.
type Key string

// NewKey derives the composite key for a template page.
func NewKey(id TemplateID, page PageIndex) Key {
	return Key(fmt.Sprintf("%s:%d", id, page))
}

// Image is a raw image payload plus its MIME type. Bytes are opaque to the
// edit core; only the codec interprets them.
type Image struct {
	MIME string
	Data []byte
}

// Clone returns a deep copy so history entries never share backing arrays.
func (im Image) Clone() Image {
	return Image{MIME: im.MIME, Data: append([]byte(nil), im.Data...)}
}

// Hotspot is the pixel a shopper tapped to anchor a localized retouch.
// Nil means the instruction applies to the whole page.
type Hotspot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PageEditRecord is the durable shadow of one in-flight page edit. It is
// written opportunistically while the editor is open and read back once on
// re-entry to the same page.
type PageEditRecord struct {
	Key          Key       `json:"key"`
	HistoryLen   int       `json:"historyLen"`
	HistoryIndex int       `json:"historyIndex"`
	HasChanges   bool      `json:"hasChanges"`
	Payload      []byte    `json:"-"` // durable-encoded image; nil when HasChanges is false
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks the record invariants.
func (r *PageEditRecord) Validate() error {
	if r.Key == "" {
		return errors.New("record key is empty")
	}
	if r.HistoryLen < 1 {
		return fmt.Errorf("historyLen %d < 1", r.HistoryLen)
	}
	if r.HistoryIndex < 0 || r.HistoryIndex >= r.HistoryLen {
		return fmt.Errorf("historyIndex %d out of range [0,%d)", r.HistoryIndex, r.HistoryLen)
	}
	if !r.HasChanges && r.Payload != nil {
		return errors.New("unchanged record must not carry a payload")
	}
	return nil
}

// SavedDesign is the remote persistence unit: one edited page as accepted by
// the backend, with an optional preview thumbnail.
type SavedDesign struct {
	TemplateID TemplateID `json:"template_id"`
	Page       PageIndex  `json:"page_index"`
	Revision   string     `json:"revision"`
	MIME       string     `json:"mime"`
	Thumbnail  []byte     `json:"thumbnail,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CardSpec captures the print geometry of a card template.
// Units are points; bleed is applied beyond the trim on every side.
type CardSpec struct {
	TrimWidth  float64 `json:"trimWidth"`
	TrimHeight float64 `json:"trimHeight"`
	Bleed      float64 `json:"bleed"`
	DPI        int     `json:"dpi"`
	Fold       string  `json:"fold"` // "half" or "flat"
}

// MediaWidth returns the full page width including bleed.
func (c CardSpec) MediaWidth() float64 { return c.TrimWidth + 2*c.Bleed }

// MediaHeight returns the full page height including bleed.
func (c CardSpec) MediaHeight() float64 { return c.TrimHeight + 2*c.Bleed }

// TemplatePage is one page of a card template manifest.
type TemplatePage struct {
	Index PageIndex `json:"index"`
	Name  string    `json:"name,omitempty"` // front, inside-left, inside-right, back
	Image string    `json:"image"`          // path relative to the template root
}

// Template is the card template manifest as stored on kiosk disk.
type Template struct {
	ID       TemplateID     `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category,omitempty"`
	Spec     CardSpec       `json:"spec"`
	Pages    []TemplatePage `json:"pages"`
}

// PageByIndex returns the manifest entry for a page index.
func (t *Template) PageByIndex(idx PageIndex) (TemplatePage, bool) {
	for _, p := range t.Pages {
		if p.Index == idx {
			return p, true
		}
	}
	return TemplatePage{}, false
}
