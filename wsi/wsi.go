// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package wsi provides window system integration (WSI)
// for GPU drivers.
// It owns the windows, pumps their events and reports
// resizes through a flag that the frame loop drains.
// Functions in this package must be called from the main
// thread.
package wsi

import (
	"errors"
	"unsafe"
)

// Window is the interface that defines a drawable window.
// The purpose of a window is to provide a surface into
// which a GPU can draw.
type Window interface {
	// SetTitle sets the window's title.
	SetTitle(title string) error

	// Close closes the window.
	Close()

	// Title returns the window's title.
	Title() string

	// FramebufferSize returns the current drawable size
	// in pixels. It is zero while the window is minimized.
	FramebufferSize() (width, height int)

	// ShouldClose returns whether the user requested
	// that the window be closed.
	ShouldClose() bool

	// Resized returns whether the drawable size changed
	// since the last call to ResetResized.
	// The flag is set from event callbacks and is only
	// meant to be consumed by a single reader.
	Resized() bool

	// ResetResized clears the flag reported by Resized.
	ResetResized()

	// InstanceExtensions returns the names of the Vulkan
	// instance extensions required to create a surface
	// for the window.
	InstanceExtensions() []string

	// CreateSurface creates a Vulkan surface for the
	// window. instance must be a Vulkan instance handle.
	CreateSurface(instance interface{}) (uintptr, error)
}

// Hint is the type of window creation hints.
type Hint int

// Window creation hints.
const (
	// HintHidden creates the window unmapped.
	HintHidden Hint = 1 << iota
	// HintFixedSize prevents the user from resizing
	// the window.
	HintFixedSize
)

// NewWindow creates a new window.
func NewWindow(width, height int, title string, hints ...Hint) (Window, error) {
	if windowCount >= MaxWindows {
		return nil, errors.New("wsi: too many windows")
	}
	var h Hint
	for _, x := range hints {
		h |= x
	}
	win, err := newWindow(width, height, title, h)
	if err != nil {
		return nil, err
	}
	for i := range createdWindows {
		if createdWindows[i] == nil {
			createdWindows[i] = win
			windowCount++
			break
		}
	}
	return win, nil
}

var newWindow = func(int, int, string, Hint) (Window, error) { return nil, errMissing }

var errMissing = errors.New("wsi: platform not initialized")

// The maximum number of windows that can exist at any
// given time.
const MaxWindows = 16

// Windows returns all created windows.
// The returned value becomes out of date after calls to
// NewWindow and Window.Close.
func Windows() []Window {
	if windowCount == 0 {
		return nil
	}
	wins := make([]Window, 0, windowCount)
	for i := range createdWindows {
		if createdWindows[i] != nil {
			wins = append(wins, createdWindows[i])
		}
	}
	return wins
}

// closeWindow removes win from createdWindows and
// decrements windowCount.
// It must be called by implementations on win.Close.
// Note that win must be comparable.
func closeWindow(win Window) {
	for i := range createdWindows {
		if createdWindows[i] == win {
			createdWindows[i] = nil
			windowCount--
			return
		}
	}
}

var (
	windowCount    int
	createdWindows [MaxWindows]Window
)

// WindowHandler is the interface that defines the methods
// for handling window events.
type WindowHandler interface {
	// WindowClose is called when a window is closed.
	WindowClose(win Window)

	// WindowResize is called when a window's drawable
	// is resized.
	WindowResize(win Window, newWidth, newHeight int)
}

// SetWindowHandler sets the global WindowHandler.
// It is called in addition to setting the window's
// resize flag.
func SetWindowHandler(wh WindowHandler) {
	windowHandler = wh
}

var windowHandler WindowHandler

// Dispatch dispatches queued events without blocking.
func Dispatch() {
	dispatch()
}

// Wait blocks until at least one event is queued and then
// dispatches queued events.
func Wait() {
	wait()
}

var (
	dispatch = func() {}
	wait     = func() {}
)

// ProcAddr returns the address of vkGetInstanceProcAddr
// as loaded by the platform, or nil if Vulkan is not
// available.
func ProcAddr() unsafe.Pointer {
	return procAddr()
}

var procAddr = func() unsafe.Pointer { return nil }

// initialized is set by Init and cleared by Terminate.
var initialized bool
