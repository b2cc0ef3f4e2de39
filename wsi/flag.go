// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"sync/atomic"
)

// resizeFlag is a single-producer, single-consumer flag.
// Event callbacks set it and the frame loop resets it
// after handling the resize.
type resizeFlag struct {
	set atomic.Bool
}

func (f *resizeFlag) raise()      { f.set.Store(true) }
func (f *resizeFlag) isSet() bool { return f.set.Load() }
func (f *resizeFlag) reset()      { f.set.Store(false) }
