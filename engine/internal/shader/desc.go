// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"github.com/gviegas/vkframe/driver"
)

// Descriptor numbers.
// These must match the bindings declared in shaders.
const (
	TransformNr = 0
	ColorTexNr  = 1
	ColorSplrNr = 2
)

func constantDesc(nr int, stages driver.Stage) driver.Descriptor {
	return driver.Descriptor{
		Type:   driver.DConstant,
		Stages: stages,
		Nr:     nr,
		Len:    1,
	}
}

func textureDesc(nr int, stages driver.Stage) driver.Descriptor {
	return driver.Descriptor{
		Type:   driver.DTexture,
		Stages: stages,
		Nr:     nr,
		Len:    1,
	}
}

func samplerDesc(nr int, stages driver.Stage) driver.Descriptor {
	return driver.Descriptor{
		Type:   driver.DSampler,
		Stages: stages,
		Nr:     nr,
		Len:    1,
	}
}

// Descriptors returns the descriptors used by the
// quad shaders: the transform (TransformLayout) in the
// vertex stage, plus the color texture and its sampler
// in the fragment stage.
func Descriptors() []driver.Descriptor {
	return []driver.Descriptor{
		constantDesc(TransformNr, driver.SVertex),
		textureDesc(ColorTexNr, driver.SFragment),
		samplerDesc(ColorSplrNr, driver.SFragment),
	}
}

// NewHeap creates a new driver.DescHeap with the
// descriptors returned by Descriptors.
func NewHeap(gpu driver.GPU) (driver.DescHeap, error) {
	return gpu.NewDescHeap(Descriptors())
}
