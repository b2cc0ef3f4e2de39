// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// memoryType is a memory type of the physical device.
type memoryType struct {
	flags vk.MemoryPropertyFlags
	heap  int
}

// initMemory queries the memory properties of d.pdev.
func (d *Driver) initMemory() {
	var prop vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.pdev, &prop)
	prop.Deref()
	d.mtypes = make([]memoryType, prop.MemoryTypeCount)
	for i := range d.mtypes {
		prop.MemoryTypes[i].Deref()
		d.mtypes[i] = memoryType{
			flags: prop.MemoryTypes[i].PropertyFlags,
			heap:  int(prop.MemoryTypes[i].HeapIndex),
		}
	}
	d.mused = make([]int64, prop.MemoryHeapCount)
}

// deviceLocalMemory returns the total size of the
// device-local heaps of dev.
func deviceLocalMemory(dev vk.PhysicalDevice) (n int64) {
	var prop vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(dev, &prop)
	prop.Deref()
	for i := 0; i < int(prop.MemoryHeapCount); i++ {
		prop.MemoryHeaps[i].Deref()
		if prop.MemoryHeaps[i].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			n += int64(prop.MemoryHeaps[i].Size)
		}
	}
	return
}

// selectMemory selects a suitable memory type from types.
// It returns the index of the selected memory, or -1 if
// none suffices.
func selectMemory(types []memoryType, typeBits uint32, prop vk.MemoryPropertyFlags) int {
	for i := range types {
		if 1<<i&typeBits != 0 && types[i].flags&prop == prop {
			return i
		}
	}
	return -1
}

// memory represents a device memory allocation.
type memory struct {
	d     *Driver
	size  int64
	vis   bool
	bound bool
	p     []byte
	mem   vk.DeviceMemory
	typ   int
	heap  int
}

// newMemory creates a new memory allocation.
func (d *Driver) newMemory(req vk.MemoryRequirements, visible bool) (*memory, error) {
	req.Deref()
	prop := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if visible {
		prop |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	typ := selectMemory(d.mtypes, req.MemoryTypeBits, prop)
	if typ == -1 {
		// Device-local memory is desired but not required.
		prop &^= vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
		typ = selectMemory(d.mtypes, req.MemoryTypeBits, prop)
	}
	if typ == -1 {
		return nil, errors.New("vk: no suitable memory type found")
	}

	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(typ),
	}
	var mem vk.DeviceMemory
	if err := checkResult(vk.AllocateMemory(d.dev, &info, nil, &mem)); err != nil {
		return nil, err
	}
	heap := d.mtypes[typ].heap
	d.mused[heap] += int64(req.Size)

	return &memory{
		d:    d,
		size: int64(req.Size),
		vis:  visible,
		mem:  mem,
		typ:  typ,
		heap: heap,
	}, nil
}

// mmap maps the memory for host access.
// The memory must be host visible (m.vis) and must have
// been bound to a resource (m.bound).
func (m *memory) mmap() error {
	if !m.vis {
		panic("cannot map memory that is not host visible")
	}
	if !m.bound {
		panic("cannot map memory that is not bound to a resource")
	}
	if len(m.p) == 0 {
		var p unsafe.Pointer
		if err := checkResult(vk.MapMemory(m.d.dev, m.mem, 0, vk.DeviceSize(vk.WholeSize), 0, &p)); err != nil {
			return err
		}
		m.p = unsafe.Slice((*byte)(p), m.size)
	}
	return nil
}

// unmap unmaps the memory.
func (m *memory) unmap() {
	if len(m.p) != 0 {
		vk.UnmapMemory(m.d.dev, m.mem)
		m.p = nil
	}
}

// free deallocates and invalidates the memory.
func (m *memory) free() {
	if m == nil {
		return
	}
	if m.d != nil {
		m.unmap()
		vk.FreeMemory(m.d.dev, m.mem, nil)
		m.d.mused[m.heap] -= m.size
	}
	*m = memory{}
}
