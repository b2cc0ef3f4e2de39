// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package engine implements real-time rendering to a
// window: the swapchain lifecycle, per-frame recording
// and submission, and the frame loop that ties them
// together.
package engine

import (
	"github.com/gviegas/vkframe/internal/log"
)

var logger = log.New("engine")

const (
	// The maximum number of frames in flight.
	MaxFrame = 3

	dflWidth          = 800
	dflHeight         = 600
	dflTitle          = "Vulkan Test"
	dflFramesInFlight = 2
	dflShaderDir      = "shaders"
)

// Config is used to configure the engine.
type Config struct {
	// Initial size of the window.
	//
	// Default is 800x600.
	Width, Height int

	// Title of the window.
	//
	// Default is "Vulkan Test".
	Title string

	// Number of frames that may be recorded while
	// others are still executing. It must be in the
	// range [1, MaxFrame].
	//
	// Default is 2.
	FramesInFlight int

	// Directory where shader files are looked up.
	//
	// Default is "shaders".
	ShaderDir string

	// Shader files, relative to ShaderDir.
	// Stages are inferred from the file names.
	//
	// Default is basic.vert.wgsl and basic.frag.wgsl.
	Shaders []string

	// Image file used as the quad's texture.
	// The empty string selects a white texture.
	//
	// Default is "".
	Texture string

	// Color which the render target is cleared to.
	//
	// Default is opaque black.
	ClearColor [4]float32

	// Whether to enable API validation.
	//
	// Default is false.
	Validation bool

	// Whether the window can be resized by the user.
	//
	// Default is true.
	Resizable bool

	// Whether to prefer mailbox over FIFO presentation.
	//
	// Default is true.
	PreferMailbox bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Width:          dflWidth,
		Height:         dflHeight,
		Title:          dflTitle,
		FramesInFlight: dflFramesInFlight,
		ShaderDir:      dflShaderDir,
		Shaders:        []string{"basic.vert.wgsl", "basic.frag.wgsl"},
		Texture:        "",
		ClearColor:     [4]float32{0, 0, 0, 1},
		Validation:     false,
		Resizable:      true,
		PreferMailbox:  true,
	}
}
