// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// renderPass implements driver.RenderPass.
type renderPass struct {
	d    *Driver
	pass vk.RenderPass
}

// NewRenderPass creates a render pass with a single color
// attachment of format f. The attachment is cleared on
// load and transitioned to the present layout at the end
// of the pass.
func (d *Driver) NewRenderPass(f driver.Format) (driver.RenderPass, error) {
	att := vk.AttachmentDescription{
		Format:         vk.Format(f),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	ref := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	sub := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{ref},
	}
	// The layout transition must wait for the acquire
	// semaphore, which is waited at color output.
	dep := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{att},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{sub},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dep},
	}
	var pass vk.RenderPass
	if err := checkResult(vk.CreateRenderPass(d.dev, &info, nil, &pass)); err != nil {
		return nil, err
	}
	return &renderPass{d: d, pass: pass}, nil
}

// Destroy destroys the render pass.
func (p *renderPass) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		vk.DestroyRenderPass(p.d.dev, p.pass, nil)
	}
	*p = renderPass{}
}

// framebuf implements driver.Framebuf.
type framebuf struct {
	d    *Driver
	fb   vk.Framebuffer
	size driver.Extent
}

// NewFramebuf creates a new framebuffer.
func (d *Driver) NewFramebuf(pass driver.RenderPass, iv []driver.ImageView, size driver.Extent) (driver.Framebuf, error) {
	if size.IsZero() {
		return nil, errors.Errorf("vk: invalid framebuffer size %dx%d", size.Width, size.Height)
	}
	views := make([]vk.ImageView, len(iv))
	for i := range iv {
		views[i] = iv[i].(*imageView).view
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.(*renderPass).pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(size.Width),
		Height:          uint32(size.Height),
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := checkResult(vk.CreateFramebuffer(d.dev, &info, nil, &fb)); err != nil {
		return nil, err
	}
	return &framebuf{d: d, fb: fb, size: size}, nil
}

// Destroy destroys the framebuffer.
func (f *framebuf) Destroy() {
	if f == nil {
		return
	}
	if f.d != nil {
		vk.DestroyFramebuffer(f.d.dev, f.fb, nil)
	}
	*f = framebuf{}
}
