// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// descHeap implements driver.DescHeap.
type descHeap struct {
	d      *Driver
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
	ds     []driver.Descriptor

	// Number of descriptors of each type in ds.
	nconst int
	ntex   int
	nsplr  int
}

// NewDescHeap creates a new descriptor heap.
func (d *Driver) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	var nconst, ntex, nsplr int
	binds := make([]vk.DescriptorSetLayoutBinding, len(ds))
	for i := range ds {
		switch ds[i].Type {
		case driver.DConstant:
			nconst += ds[i].Len
		case driver.DTexture:
			ntex += ds[i].Len
		case driver.DSampler:
			nsplr += ds[i].Len
		}
		// Descriptor.Nr is the binding number, which must be
		// unique within a descriptor set.
		for j := i + 1; j < len(ds); j++ {
			if ds[i].Nr == ds[j].Nr {
				return nil, errors.Errorf("vk: descriptor number %d is not unique", ds[i].Nr)
			}
		}
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(ds[i].Nr),
			DescriptorType:  convDescType(ds[i].Type),
			DescriptorCount: uint32(ds[i].Len),
			StageFlags:      convStage(ds[i].Stages),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}
	var layout vk.DescriptorSetLayout
	if err := checkResult(vk.CreateDescriptorSetLayout(d.dev, &info, nil, &layout)); err != nil {
		return nil, err
	}
	// Pool creation and set allocation is left to New.
	return &descHeap{
		d:      d,
		layout: layout,
		ds:     append([]driver.Descriptor(nil), ds...),
		nconst: nconst,
		ntex:   ntex,
		nsplr:  nsplr,
	}, nil
}

// New creates enough storage for n copies of each descriptor.
// Existing copies are discarded.
func (h *descHeap) New(n int) error {
	switch {
	case n == len(h.sets):
		return nil
	case len(h.sets) != 0:
		vk.DestroyDescriptorPool(h.d.dev, h.pool, nil)
		h.pool = vk.NullDescriptorPool
		h.sets = nil
		if n == 0 {
			return nil
		}
	}

	dc := []struct {
		typ vk.DescriptorType
		cnt int
	}{
		{vk.DescriptorTypeUniformBuffer, h.nconst * n},
		{vk.DescriptorTypeSampledImage, h.ntex * n},
		{vk.DescriptorTypeSampler, h.nsplr * n},
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(dc))
	for _, x := range dc {
		if x.cnt != 0 {
			sizes = append(sizes, vk.DescriptorPoolSize{Type: x.typ, DescriptorCount: uint32(x.cnt)})
		}
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(n),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := checkResult(vk.CreateDescriptorPool(h.d.dev, &info, nil, &pool)); err != nil {
		return err
	}

	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = h.layout
	}
	sinfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(n),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, n)
	if err := checkResult(vk.AllocateDescriptorSets(h.d.dev, &sinfo, &sets[0])); err != nil {
		vk.DestroyDescriptorPool(h.d.dev, pool, nil)
		return err
	}
	h.pool = pool
	h.sets = sets
	return nil
}

// SetBuffer updates the buffer range referred by the
// given descriptor of the given heap copy.
func (h *descHeap) SetBuffer(cpy, nr int, buf driver.Buffer, off, size int64) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DescriptorCount: 1,
		DescriptorType:  h.typeOf(nr),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.(*buffer).buf,
			Offset: vk.DeviceSize(off),
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SetTexture updates the texture referred by the given
// descriptor of the given heap copy.
func (h *descHeap) SetTexture(cpy, nr int, tex driver.Texture) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DescriptorCount: 1,
		DescriptorType:  h.typeOf(nr),
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   tex.(*texture).view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SetSampler updates the sampler referred by the given
// descriptor of the given heap copy.
func (h *descHeap) SetSampler(cpy, nr int, splr driver.Sampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          h.sets[cpy],
		DstBinding:      uint32(nr),
		DescriptorCount: 1,
		DescriptorType:  h.typeOf(nr),
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler: splr.(*sampler).splr,
		}},
	}
	vk.UpdateDescriptorSets(h.d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// Count returns the number of heap copies created by New.
func (h *descHeap) Count() int { return len(h.sets) }

// Destroy destroys the descriptor heap.
func (h *descHeap) Destroy() {
	if h == nil {
		return
	}
	if h.d != nil {
		if len(h.sets) != 0 {
			vk.DestroyDescriptorPool(h.d.dev, h.pool, nil)
		}
		vk.DestroyDescriptorSetLayout(h.d.dev, h.layout, nil)
	}
	*h = descHeap{}
}

// typeOf returns the descriptor type of the descriptor
// in h identified by the binding nr.
func (h *descHeap) typeOf(nr int) vk.DescriptorType {
	for i := range h.ds {
		if h.ds[i].Nr == nr {
			return convDescType(h.ds[i].Type)
		}
	}
	panic("no such descriptor binding")
}

// convDescType converts a driver.DescType to a
// vk.DescriptorType.
func convDescType(t driver.DescType) vk.DescriptorType {
	switch t {
	case driver.DTexture:
		return vk.DescriptorTypeSampledImage
	case driver.DSampler:
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

// convStage converts a driver.Stage to shader stage flags.
func convStage(stg driver.Stage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if stg&driver.SVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if stg&driver.SFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(flags)
}
