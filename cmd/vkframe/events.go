// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"github.com/gviegas/vkframe/wsi"
)

// windowEvents logs window events.
// Resizes are also counted, so that the number of chain
// recreations can be compared against them at exit.
type windowEvents struct {
	resizes int
}

func (e *windowEvents) WindowResize(win wsi.Window, width, height int) {
	e.resizes++
	if width == 0 || height == 0 {
		logger.Infof("window %q minimized", win.Title())
		return
	}
	logger.Infof("window %q resized to %dx%d", win.Title(), width, height)
}

func (*windowEvents) WindowClose(win wsi.Window) {
	logger.Noticef("window %q closed", win.Title())
}
