// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// buffer implements driver.Buffer.
type buffer struct {
	m   *memory
	buf vk.Buffer
}

// convUsage converts usage flags to buffer usage flags.
// Transfer usage is always included.
func convUsage(usg driver.Usage) vk.BufferUsageFlags {
	u := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if usg&driver.UShaderConst != 0 {
		u |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usg&driver.UVertexData != 0 {
		u |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usg&driver.UIndexData != 0 {
		u |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	return u
}

// NewBuffer creates a new buffer.
func (d *Driver) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size <= 0 {
		return nil, errors.Errorf("vk: invalid buffer size %d", size)
	}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       convUsage(usg),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := checkResult(vk.CreateBuffer(d.dev, &info, nil, &buf)); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &req)
	m, err := d.newMemory(req, visible)
	if err != nil {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	if err = checkResult(vk.BindBufferMemory(d.dev, buf, m.mem, 0)); err != nil {
		m.free()
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	m.bound = true
	if visible {
		// Keep the memory mapped for the lifetime of the buffer.
		if err = m.mmap(); err != nil {
			m.free()
			vk.DestroyBuffer(d.dev, buf, nil)
			return nil, err
		}
	}
	return &buffer{m: m, buf: buf}, nil
}

// WriteBuffer copies data into buf at offset off.
// Host-visible buffers are written directly. Other
// buffers are written through a staging buffer and a
// one-shot copy that completes before WriteBuffer
// returns.
func (d *Driver) WriteBuffer(buf driver.Buffer, off int64, data []byte) error {
	b := buf.(*buffer)
	if off < 0 || off+int64(len(data)) > b.Cap() {
		return errors.Errorf("vk: write of %d bytes at %d out of buffer bounds (%d)", len(data), off, b.Cap())
	}
	if len(data) == 0 {
		return nil
	}
	if b.Visible() {
		copy(b.Bytes()[off:], data)
		return nil
	}
	stg, err := d.NewBuffer(int64(len(data)), true, driver.UCopySrc)
	if err != nil {
		return errors.Wrap(err, "vk: staging buffer")
	}
	defer stg.Destroy()
	copy(stg.Bytes(), data)
	return d.oneShot(func(cb vk.CommandBuffer) {
		region := vk.BufferCopy{
			DstOffset: vk.DeviceSize(off),
			Size:      vk.DeviceSize(len(data)),
		}
		vk.CmdCopyBuffer(cb, stg.(*buffer).buf, b.buf, 1, []vk.BufferCopy{region})
	})
}

// Visible returns whether the buffer is host visible.
func (b *buffer) Visible() bool { return b.m.vis }

// Bytes returns a slice of length b.Cap() referring to
// the underlying data.
func (b *buffer) Bytes() []byte { return b.m.p }

// Cap returns the capacity of the buffer in bytes.
func (b *buffer) Cap() int64 { return b.m.size }

// Destroy destroys the buffer.
func (b *buffer) Destroy() {
	if b == nil {
		return
	}
	if b.m != nil {
		vk.DestroyBuffer(b.m.d.dev, b.buf, nil)
		b.m.free()
	}
	*b = buffer{}
}
