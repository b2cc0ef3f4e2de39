// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/internal/log"
)

var logger = log.New("wsi")

// Init initializes the GLFW platform.
// It must be called from the main thread before any
// window is created.
func Init() error {
	if initialized {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "wsi: glfw.Init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("wsi: Vulkan loader not found")
	}
	newWindow = newGLFWWindow
	dispatch = glfw.PollEvents
	wait = glfw.WaitEvents
	procAddr = glfw.GetVulkanGetInstanceProcAddress
	initialized = true
	logger.Debug("GLFW initialized")
	return nil
}

// Terminate closes every window and deinitializes the
// platform. Calling Terminate when the platform is not
// initialized has no effect.
func Terminate() {
	if !initialized {
		return
	}
	for _, w := range Windows() {
		w.Close()
	}
	glfw.Terminate()
	newWindow = func(int, int, string, Hint) (Window, error) { return nil, errMissing }
	dispatch = func() {}
	wait = func() {}
	procAddr = func() unsafe.Pointer { return nil }
	initialized = false
}

// glfwWindow implements Window.
type glfwWindow struct {
	win     *glfw.Window
	title   string
	resized resizeFlag
}

func newGLFWWindow(width, height int, title string, hints Hint) (Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, boolHint(hints&HintFixedSize == 0))
	glfw.WindowHint(glfw.Visible, boolHint(hints&HintHidden == 0))
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wsi: glfw.CreateWindow")
	}
	w := &glfwWindow{win: win, title: title}
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized.raise()
		if windowHandler != nil {
			windowHandler.WindowResize(w, width, height)
		}
	})
	win.SetCloseCallback(func(*glfw.Window) {
		if windowHandler != nil {
			windowHandler.WindowClose(w)
		}
	})
	logger.Debugf("window created (%dx%d %q)", width, height, title)
	return w, nil
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

// SetTitle sets the window's title.
func (w *glfwWindow) SetTitle(title string) error {
	w.win.SetTitle(title)
	w.title = title
	return nil
}

// Close closes the window.
func (w *glfwWindow) Close() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
	closeWindow(w)
}

// Title returns the window's title.
func (w *glfwWindow) Title() string { return w.title }

// FramebufferSize returns the drawable size in pixels.
func (w *glfwWindow) FramebufferSize() (int, int) { return w.win.GetFramebufferSize() }

// ShouldClose returns whether closing was requested.
func (w *glfwWindow) ShouldClose() bool { return w.win.ShouldClose() }

// Resized returns whether the drawable was resized.
func (w *glfwWindow) Resized() bool { return w.resized.isSet() }

// ResetResized clears the resize flag.
func (w *glfwWindow) ResetResized() { w.resized.reset() }

// InstanceExtensions returns the required Vulkan instance
// extensions.
func (w *glfwWindow) InstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates a Vulkan surface for the window.
func (w *glfwWindow) CreateSurface(instance interface{}) (uintptr, error) {
	s, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "wsi: CreateWindowSurface")
	}
	return s, nil
}
