/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package session

// State tracks where a coordinator is in its mount/edit/save lifecycle.
// StateSaving overlays StateEditing while a durable write is in flight;
// the session stays interactive either way.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateEditing
	StateSaving
	StateExited
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a host signal that could end the page's life. The kiosk
// shell translates its navigation, visibility and unload callbacks into these
// and dispatches them through Coordinator.HandleLifecycle, which keeps the
// save logic testable without a real browser.
type LifecycleEvent int

const (
	// EventNavigate fires when the shopper navigates to another view.
	EventNavigate LifecycleEvent = iota
	// EventHide fires when the tab or kiosk panel is hidden.
	EventHide
	// EventUnload fires when the page is being torn down.
	EventUnload
	// EventCancel fires when the shopper explicitly discards the edit.
	EventCancel
	// EventSaveAndLeave fires when the shopper accepts the edit and leaves.
	EventSaveAndLeave
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventNavigate:
		return "navigate"
	case EventHide:
		return "hide"
	case EventUnload:
		return "unload"
	case EventCancel:
		return "cancel"
	case EventSaveAndLeave:
		return "save_and_leave"
	default:
		return "unknown"
	}
}
