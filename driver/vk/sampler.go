// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// sampler implements driver.Sampler.
type sampler struct {
	d    *Driver
	splr vk.Sampler
}

// NewSampler creates a new sampler.
// Anisotropic filtering is enabled only if the device
// supports it and spln.MaxAniso is greater than one.
func (d *Driver) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               convFilter(spln.Mag),
		MinFilter:               convFilter(spln.Min),
		MipmapMode:              convMipFilter(spln.Mipmap),
		AddressModeU:            convAddrMode(spln.AddrU),
		AddressModeV:            convAddrMode(spln.AddrV),
		AddressModeW:            convAddrMode(spln.AddrU),
		MaxAnisotropy:           1,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if aniso := clampAniso(spln.MaxAniso, d.lim.MaxAniso); aniso > 1 {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = aniso
	}
	var splr vk.Sampler
	if err := checkResult(vk.CreateSampler(d.dev, &info, nil, &splr)); err != nil {
		return nil, err
	}
	return &sampler{d: d, splr: splr}, nil
}

// clampAniso clamps the requested anisotropy to the
// device limit. A limit of zero disables anisotropy.
func clampAniso(want, limit float32) float32 {
	if limit <= 0 || want <= 1 {
		return 1
	}
	if want > limit {
		return limit
	}
	return want
}

// Destroy destroys the sampler.
func (s *sampler) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		vk.DestroySampler(s.d.dev, s.splr, nil)
	}
	*s = sampler{}
}

// convFilter converts a driver.Filter to a vk.Filter.
func convFilter(f driver.Filter) vk.Filter {
	if f == driver.FLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

// convMipFilter converts a driver.Filter to a
// vk.SamplerMipmapMode.
func convMipFilter(f driver.Filter) vk.SamplerMipmapMode {
	if f == driver.FLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

// convAddrMode converts a driver.AddrMode to a
// vk.SamplerAddressMode.
func convAddrMode(am driver.AddrMode) vk.SamplerAddressMode {
	switch am {
	case driver.AMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case driver.AClamp:
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}
