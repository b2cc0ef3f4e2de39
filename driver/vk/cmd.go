// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	d     *Driver
	cb    vk.CommandBuffer
	begun bool
}

// NewCmdBuffer creates a new command buffer.
// It is allocated from the graphics queue's pool and
// must only be submitted to that queue.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	cb, err := d.allocCmd()
	if err != nil {
		return nil, err
	}
	return &cmdBuffer{d: d, cb: cb}, nil
}

// allocCmd allocates a primary command buffer from d.pool.
func (d *Driver) allocCmd() (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := checkResult(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return nil, err
	}
	return cbs[0], nil
}

// oneShot records commands using rec and executes them
// on the graphics queue, waiting for completion.
func (d *Driver) oneShot(rec func(cb vk.CommandBuffer)) error {
	cb, err := d.allocCmd()
	if err != nil {
		return err
	}
	cbs := []vk.CommandBuffer{cb}
	defer vk.FreeCommandBuffers(d.dev, d.pool, 1, cbs)

	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err = checkResult(vk.BeginCommandBuffer(cb, &begin)); err != nil {
		return err
	}
	rec(cb)
	if err = checkResult(vk.EndCommandBuffer(cb)); err != nil {
		return err
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cbs,
	}
	d.qmu.Lock()
	defer d.qmu.Unlock()
	if err = checkResult(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{info}, vk.NullFence)); err != nil {
		return err
	}
	return checkResult(vk.QueueWaitIdle(d.gque))
}

// Reset puts the command buffer in the initial state.
func (cb *cmdBuffer) Reset() error {
	if err := checkResult(vk.ResetCommandBuffer(cb.cb, 0)); err != nil {
		return err
	}
	cb.begun = false
	return nil
}

// Begin puts the command buffer in the recording state.
func (cb *cmdBuffer) Begin() error {
	if cb.begun {
		return nil
	}
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := checkResult(vk.BeginCommandBuffer(cb.cb, &info)); err != nil {
		return err
	}
	cb.begun = true
	return nil
}

// End puts the command buffer in the executable state.
func (cb *cmdBuffer) End() error {
	if !cb.begun {
		return nil
	}
	cb.begun = false
	return checkResult(vk.EndCommandBuffer(cb.cb))
}

// BeginPass begins a render pass.
func (cb *cmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, area driver.Extent, clear [4]float32) {
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.(*renderPass).pass,
		Framebuffer: fb.(*framebuf).fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  uint32(area.Width),
				Height: uint32(area.Height),
			},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
	}
	vk.CmdBeginRenderPass(cb.cb, &info, vk.SubpassContentsInline)
}

// EndPass ends the current render pass.
func (cb *cmdBuffer) EndPass() { vk.CmdEndRenderPass(cb.cb) }

// SetPipeline binds a graphics pipeline.
func (cb *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	vk.CmdBindPipeline(cb.cb, vk.PipelineBindPointGraphics, pl.(*pipeline).pl)
}

// SetViewport sets the dynamic viewport.
func (cb *cmdBuffer) SetViewport(vp driver.Viewport) {
	vk.CmdSetViewport(cb.cb, 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.Znear,
		MaxDepth: vp.Zfar,
	}})
}

// SetScissor sets the dynamic scissor rectangle.
func (cb *cmdBuffer) SetScissor(sciss driver.Scissor) {
	vk.CmdSetScissor(cb.cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(sciss.X), Y: int32(sciss.Y)},
		Extent: vk.Extent2D{Width: uint32(sciss.Width), Height: uint32(sciss.Height)},
	}})
}

// SetVertexBuf binds the vertex buffer.
func (cb *cmdBuffer) SetVertexBuf(buf driver.Buffer, off int64) {
	vk.CmdBindVertexBuffers(cb.cb, 0, 1, []vk.Buffer{buf.(*buffer).buf}, []vk.DeviceSize{vk.DeviceSize(off)})
}

// SetIndexBuf binds the index buffer.
func (cb *cmdBuffer) SetIndexBuf(f driver.IndexFmt, buf driver.Buffer, off int64) {
	typ := vk.IndexTypeUint16
	if f == driver.Index32 {
		typ = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(cb.cb, buf.(*buffer).buf, vk.DeviceSize(off), typ)
}

// SetDescHeap binds copy cpy of dh.
func (cb *cmdBuffer) SetDescHeap(pl driver.Pipeline, dh driver.DescHeap, cpy int) {
	h := dh.(*descHeap)
	vk.CmdBindDescriptorSets(cb.cb, vk.PipelineBindPointGraphics, pl.(*pipeline).layout, 0, 1, []vk.DescriptorSet{h.sets[cpy]}, 0, nil)
}

// DrawIndexed draws indexed primitives.
func (cb *cmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	vk.CmdDrawIndexed(cb.cb, uint32(idxCount), uint32(instCount), uint32(baseIdx), int32(vertOff), uint32(baseInst))
}

// Destroy destroys the command buffer.
func (cb *cmdBuffer) Destroy() {
	if cb == nil {
		return
	}
	if cb.d != nil {
		vk.FreeCommandBuffers(cb.d.dev, cb.d.pool, 1, []vk.CommandBuffer{cb.cb})
	}
	*cb = cmdBuffer{}
}
