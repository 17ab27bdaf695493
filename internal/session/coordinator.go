/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session orchestrates one page-edit session: it rehydrates the edit
// history on mount, mirrors every mutation into the durable page store and
// the ephemeral metadata cache, and reacts to host lifecycle events with
// best-effort saves. Saves never block the shopper; the synchronous metadata
// breadcrumb exists precisely because the async durable write can be killed
// by page teardown.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartwish/internal/codec"
	"smartwish/internal/domain"
	"smartwish/internal/history"
	"smartwish/internal/kvcache"
	applog "smartwish/internal/log"
	"smartwish/internal/pagestore"
	"smartwish/internal/telemetry"
)

// ErrRestorationExhausted means no tier (handoff, durable cache, image
// source) produced an image. Fatal for the current mount.
var ErrRestorationExhausted = errors.New("session: no image available from any restoration tier")

// ErrNotEditing is returned when a mutation arrives outside the Editing state.
var ErrNotEditing = errors.New("session: coordinator is not in the editing state")

// ImageSource fetches the original, unedited page image. Queried only when
// neither the handoff slot nor the durable store can restore the session.
type ImageSource interface {
	FetchOriginalPage(ctx context.Context, id domain.TemplateID, page domain.PageIndex) (domain.Image, error)
}

// EditService applies one generative retouch to an image. A failure leaves
// the history untouched and is surfaced to the shopper as a dismissible error.
type EditService interface {
	RequestEdit(ctx context.Context, img domain.Image, instruction string, hotspot *domain.Hotspot) (domain.Image, error)
}

// Persister is the authoritative long-term save target. The durable store
// and the metadata cache only bridge the gap until this save completes.
type Persister interface {
	PersistEditedPage(ctx context.Context, id domain.TemplateID, page domain.PageIndex, img domain.Image) (revision string, err error)
}

// Metadata is the breadcrumb written synchronously to the ephemeral cache.
// It never carries image bytes.
type Metadata struct {
	SessionID    string    `json:"sessionId"`
	Key          string    `json:"key"`
	HistoryLen   int       `json:"historyLen"`
	HistoryIndex int       `json:"historyIndex"`
	HasChanges   bool      `json:"hasChanges"`
	SavedAt      time.Time `json:"savedAt"`
}

// Options tunes a coordinator. Zero values pick the defaults.
type Options struct {
	Debounce         time.Duration // quiet period before a durable save; default 500ms
	HandoffFreshness time.Duration // max age of an honored handoff payload; default 10s
	Retention        time.Duration // durable record lifetime; default 24h
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.HandoffFreshness <= 0 {
		o.HandoffFreshness = 10 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Coordinator drives a single page-edit session. Only one session exists per
// mounted editor; a second Mount first tears down the previous one.
type Coordinator struct {
	durable *pagestore.Soft
	cache   *kvcache.Cache
	handoff *HandoffSlot
	source  ImageSource
	editor  EditService
	remote  Persister // may be nil when the kiosk is offline
	opts    Options
	log     *slog.Logger

	mu            sync.Mutex
	state         State
	sessionID     string
	tpl           domain.TemplateID
	page          domain.PageIndex
	key           domain.Key
	stack         *history.Stack
	saveTimer     *time.Timer
	savesInFlight int

	saves sync.WaitGroup // in-flight fire-and-forget durable writes
}

// New wires a coordinator from its collaborators. remote may be nil.
func New(durable *pagestore.Soft, cache *kvcache.Cache, handoff *HandoffSlot,
	source ImageSource, editor EditService, remote Persister, opts Options) *Coordinator {
	return &Coordinator{
		durable: durable,
		cache:   cache,
		handoff: handoff,
		source:  source,
		editor:  editor,
		remote:  remote,
		opts:    opts.withDefaults(),
		log:     applog.WithComponent("session"),
	}
}

// State reports the current lifecycle state. Saving is an overlay on
// Editing: it is reported while a durable write is in flight but it never
// gates shopper interaction.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateEditing && c.savesInFlight > 0 {
		return StateSaving
	}
	return c.state
}

// Key reports the composite key of the mounted page.
func (c *Coordinator) Key() domain.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// History exposes the live edit history of the mounted session.
func (c *Coordinator) History() *history.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stack
}

// Mount opens an edit session for a template page, restoring prior state in
// strict priority order: fresh handoff payload, durable record, then the
// original page from the image source. A previous session, if any, is saved
// and detached first.
func (c *Coordinator) Mount(ctx context.Context, id domain.TemplateID, page domain.PageIndex) error {
	c.mu.Lock()
	if c.state == StateEditing {
		c.mu.Unlock()
		c.Unmount(ctx)
		c.mu.Lock()
	}
	c.state = StateLoading
	c.sessionID = uuid.NewString()
	c.tpl, c.page = id, page
	c.key = domain.NewKey(id, page)
	c.stack = nil
	key, sid := c.key, c.sessionID
	c.mu.Unlock()

	l := c.log.With(slog.String("key", string(key)), slog.String("session", sid))

	// Opportunistic retention sweep; never blocks the mount.
	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		c.durable.Sweep(context.Background(), c.opts.Retention)
	}()

	img, tier, err := c.restore(ctx, key, id, page, l)
	if err != nil {
		c.mu.Lock()
		c.state = StateExited
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.stack = history.NewStack(img)
	c.state = StateEditing
	c.mu.Unlock()

	l.Info("session restored", slog.String("tier", tier), slog.Int64("bytes", int64(len(img.Data))))
	telemetry.Event("session_restored", map[string]any{"tier": tier})
	return nil
}

// restore walks the restoration tiers. It returns the seeded image and the
// tier name that produced it.
func (c *Coordinator) restore(ctx context.Context, key domain.Key, id domain.TemplateID, page domain.PageIndex, l *slog.Logger) (domain.Image, string, error) {
	// Tier 1: same-tab handoff from a just-completed external edit.
	if payload, ok := c.handoff.Take(key, c.opts.Now(), c.opts.HandoffFreshness); ok {
		img, err := codec.DecodeHandoff(payload)
		if err == nil {
			return img, "handoff", nil
		}
		l.Warn("handoff payload malformed, falling through", slog.Any("err", err))
	}

	// Tier 2: durable record from an interrupted session.
	if rec, ok := c.durable.Get(ctx, key); ok && rec.HasChanges && len(rec.Payload) > 0 {
		img, err := codec.Decode(rec.Payload)
		if err == nil {
			return img, "durable", nil
		}
		l.Warn("durable record malformed, discarding", slog.Any("err", err))
		c.durable.Delete(ctx, key)
	}

	// Tier 3: the original from the template service.
	img, err := c.source.FetchOriginalPage(ctx, id, page)
	if err != nil {
		l.Error("all restoration tiers failed", slog.Any("err", err))
		return domain.Image{}, "", fmt.Errorf("%w: fetch original: %v", ErrRestorationExhausted, err)
	}
	return img, "origin", nil
}

// ApplyEdit sends the current image plus instruction to the edit service and,
// on success, appends the result to the history and schedules a save. On
// failure the history is unchanged and the error is returned for display.
func (c *Coordinator) ApplyEdit(ctx context.Context, instruction string, hotspot *domain.Hotspot) error {
	c.mu.Lock()
	if c.state != StateEditing {
		c.mu.Unlock()
		return ErrNotEditing
	}
	stack := c.stack
	c.mu.Unlock()

	edited, err := c.editor.RequestEdit(ctx, stack.Current(), instruction, hotspot)
	if err != nil {
		c.log.Warn("edit request failed", slog.String("key", string(c.Key())), slog.Any("err", err))
		return err
	}
	stack.Apply(edited)
	telemetry.Event("edit_applied", map[string]any{"historyLen": stack.Len()})
	c.afterMutation()
	return nil
}

// Undo steps the history back one version.
func (c *Coordinator) Undo(ctx context.Context) bool {
	return c.mutate(ctx, func(s *history.Stack) bool { return s.Undo() })
}

// Redo steps the history forward one version.
func (c *Coordinator) Redo(ctx context.Context) bool {
	return c.mutate(ctx, func(s *history.Stack) bool { return s.Redo() })
}

// Reset returns to the pristine original without discarding redo history.
func (c *Coordinator) Reset(ctx context.Context) bool {
	return c.mutate(ctx, func(s *history.Stack) bool { s.Reset(); return true })
}

func (c *Coordinator) mutate(ctx context.Context, op func(*history.Stack) bool) bool {
	c.mu.Lock()
	if c.state != StateEditing || c.stack == nil {
		c.mu.Unlock()
		return false
	}
	stack := c.stack
	c.mu.Unlock()
	if !op(stack) {
		return false
	}
	c.afterMutation()
	return true
}

// afterMutation records the breadcrumb synchronously and (re)arms the
// debounce timer for the durable write.
func (c *Coordinator) afterMutation() {
	c.writeBreadcrumb()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveTimer != nil {
		c.saveTimer.Stop()
	}
	c.saveTimer = time.AfterFunc(c.opts.Debounce, func() { c.saveDurable(context.Background(), false) })
}

// writeBreadcrumb stores the metadata-only record in the ephemeral cache.
// Must complete within the caller's execution turn; it never carries bytes.
func (c *Coordinator) writeBreadcrumb() {
	c.mu.Lock()
	key, sid, stack := c.key, c.sessionID, c.stack
	c.mu.Unlock()
	if stack == nil {
		return
	}
	md := Metadata{
		SessionID:    sid,
		Key:          string(key),
		HistoryLen:   stack.Len(),
		HistoryIndex: stack.Index(),
		HasChanges:   stack.HasChanges(),
		SavedAt:      c.opts.Now(),
	}
	data, err := json.Marshal(md)
	if err != nil {
		return
	}
	if !c.cache.Put(key, string(data)) {
		c.log.Debug("breadcrumb dropped, cache budget exhausted", slog.String("key", string(key)))
	}
}

// Breadcrumb returns the cached metadata for the mounted key, if present.
func (c *Coordinator) Breadcrumb() (Metadata, bool) {
	raw, ok := c.cache.Get(c.Key())
	if !ok {
		return Metadata{}, false
	}
	var md Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return Metadata{}, false
	}
	return md, true
}

// saveDurable writes the current state to the durable store. When async is
// false the write happens on the caller's goroutine; otherwise it is fire-
// and-forget. Either way the session stays interactive: edits arriving while
// the write is in flight are accepted. An unchanged session writes a
// payload-free record.
func (c *Coordinator) saveDurable(ctx context.Context, async bool) {
	c.mu.Lock()
	if c.stack == nil {
		c.mu.Unlock()
		return
	}
	key, stack := c.key, c.stack
	c.savesInFlight++
	c.mu.Unlock()

	done := func() {
		c.mu.Lock()
		c.savesInFlight--
		c.mu.Unlock()
	}

	rec := &domain.PageEditRecord{
		Key:          key,
		HistoryLen:   stack.Len(),
		HistoryIndex: stack.Index(),
		HasChanges:   stack.HasChanges(),
		Timestamp:    c.opts.Now(),
	}
	if rec.HasChanges {
		payload, err := codec.EncodeDurable(stack.Current())
		if err != nil {
			c.log.Warn("encode for durable store failed", slog.String("key", string(key)), slog.Any("err", err))
			telemetry.Event("durable_save_failed", map[string]any{"stage": "encode"})
			done()
			return
		}
		rec.Payload = payload
	}

	write := func() {
		c.durable.Put(ctx, rec)
		done()
	}
	if async {
		c.saves.Add(1)
		go func() {
			defer c.saves.Done()
			write()
		}()
		return
	}
	write()
}

// HandleLifecycle reacts to a host signal. Saves triggered here never block
// or delay the host; cancel is the only event that clears state.
func (c *Coordinator) HandleLifecycle(ctx context.Context, ev LifecycleEvent) {
	c.log.Debug("lifecycle event", slog.String("event", ev.String()), slog.String("key", string(c.Key())))
	switch ev {
	case EventNavigate, EventHide, EventUnload:
		c.stopTimer()
		c.writeBreadcrumb()
		c.saveDurable(ctx, true)
	case EventCancel:
		c.Cancel(ctx)
	case EventSaveAndLeave:
		c.SaveAndLeave(ctx)
	}
}

// Cancel discards the session: both stores are cleared for this key and the
// in-memory history is dropped. The next mount starts from the original.
func (c *Coordinator) Cancel(ctx context.Context) {
	c.stopTimer()
	c.mu.Lock()
	key := c.key
	c.stack = nil
	c.state = StateExited
	c.mu.Unlock()

	c.handoff.Discard(key)
	c.durable.Delete(ctx, key)
	c.cache.Remove(key)
	c.log.Info("session cancelled", slog.String("key", string(key)))
	telemetry.Event("session_cancelled", nil)
}

// SaveAndLeave persists the current image before the session detaches: the
// durable write runs synchronously, the breadcrumb is written regardless,
// and when a remote persister is configured the page is pushed to it. A
// successful remote save clears both local stores; they only existed to
// bridge until this moment.
func (c *Coordinator) SaveAndLeave(ctx context.Context) {
	c.stopTimer()
	c.writeBreadcrumb()
	c.saveDurable(ctx, false)

	c.mu.Lock()
	key, tpl, page, stack := c.key, c.tpl, c.page, c.stack
	c.state = StateExited
	c.mu.Unlock()
	if stack == nil {
		return
	}

	if c.remote != nil && stack.HasChanges() {
		rev, err := c.remote.PersistEditedPage(ctx, tpl, page, stack.Current())
		if err != nil {
			c.log.Warn("remote persist failed, durable record kept", slog.String("key", string(key)), slog.Any("err", err))
			telemetry.Event("remote_persist_failed", nil)
			return
		}
		c.log.Info("page persisted remotely", slog.String("key", string(key)), slog.String("revision", rev))
		telemetry.Event("remote_persisted", nil)
		c.durable.Delete(ctx, key)
		c.cache.Remove(key)
	}
}

// Unmount performs the best-effort save of the unmount lifecycle hook and
// detaches the session.
func (c *Coordinator) Unmount(ctx context.Context) {
	c.stopTimer()
	c.writeBreadcrumb()
	c.saveDurable(ctx, false)
	c.mu.Lock()
	c.stack = nil
	c.state = StateExited
	c.mu.Unlock()
}

// Flush waits for in-flight fire-and-forget writes. Test helper and shutdown
// aid; the kiosk never calls this on an interaction path.
func (c *Coordinator) Flush() {
	c.stopTimer()
	c.saves.Wait()
}

func (c *Coordinator) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
}
