// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// fence implements driver.Fence.
type fence struct {
	d     *Driver
	fence vk.Fence
}

// NewFence creates a new fence.
func (d *Driver) NewFence(signaled bool) (driver.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := checkResult(vk.CreateFence(d.dev, &info, nil, &f)); err != nil {
		return nil, err
	}
	return &fence{d: d, fence: f}, nil
}

// Wait blocks until the fence is signaled.
func (f *fence) Wait() error {
	return checkResult(vk.WaitForFences(f.d.dev, 1, []vk.Fence{f.fence}, vk.True, math.MaxUint64))
}

// Reset unsignals the fence.
func (f *fence) Reset() error {
	return checkResult(vk.ResetFences(f.d.dev, 1, []vk.Fence{f.fence}))
}

// Destroy destroys the fence.
func (f *fence) Destroy() {
	if f == nil {
		return
	}
	if f.d != nil {
		vk.DestroyFence(f.d.dev, f.fence, nil)
	}
	*f = fence{}
}

// semaphore implements driver.Semaphore.
type semaphore struct {
	d   *Driver
	sem vk.Semaphore
}

// NewSemaphore creates a new binary semaphore.
func (d *Driver) NewSemaphore() (driver.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var s vk.Semaphore
	if err := checkResult(vk.CreateSemaphore(d.dev, &info, nil, &s)); err != nil {
		return nil, err
	}
	return &semaphore{d: d, sem: s}, nil
}

// Destroy destroys the semaphore.
func (s *semaphore) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		vk.DestroySemaphore(s.d.dev, s.sem, nil)
	}
	*s = semaphore{}
}

// convSync converts a driver.Sync mask to pipeline
// stage flags.
func convSync(s driver.Sync) vk.PipelineStageFlags {
	if s == driver.SNone {
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if s&driver.SAll != 0 {
		return vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
	var f vk.PipelineStageFlagBits
	if s&driver.STopOfPipe != 0 {
		f |= vk.PipelineStageTopOfPipeBit
	}
	if s&driver.SVertexInput != 0 {
		f |= vk.PipelineStageVertexInputBit
	}
	if s&driver.SVertexShading != 0 {
		f |= vk.PipelineStageVertexShaderBit
	}
	if s&driver.SFragmentShading != 0 {
		f |= vk.PipelineStageFragmentShaderBit
	}
	if s&driver.SColorOutput != 0 {
		f |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&driver.SCopy != 0 {
		f |= vk.PipelineStageTransferBit
	}
	return vk.PipelineStageFlags(f)
}

// Submit submits cb to the graphics queue.
func (d *Driver) Submit(cb driver.CmdBuffer, s *driver.SubmitSync) error {
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.(*cmdBuffer).cb},
	}
	f := vk.NullFence
	if s != nil {
		if len(s.Wait) != len(s.WaitSync) {
			panic("mismatched wait semaphores and stages")
		}
		if n := len(s.Wait); n > 0 {
			wait := make([]vk.Semaphore, n)
			stg := make([]vk.PipelineStageFlags, n)
			for i := range s.Wait {
				wait[i] = s.Wait[i].(*semaphore).sem
				stg[i] = convSync(s.WaitSync[i])
			}
			info.WaitSemaphoreCount = uint32(n)
			info.PWaitSemaphores = wait
			info.PWaitDstStageMask = stg
		}
		if n := len(s.Signal); n > 0 {
			sig := make([]vk.Semaphore, n)
			for i := range s.Signal {
				sig[i] = s.Signal[i].(*semaphore).sem
			}
			info.SignalSemaphoreCount = uint32(n)
			info.PSignalSemaphores = sig
		}
		if s.Fence != nil {
			f = s.Fence.(*fence).fence
		}
	}
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return checkResult(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{info}, f))
}
