// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"image"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

// texture implements driver.Texture.
type texture struct {
	m    *memory
	img  vk.Image
	view vk.ImageView
	size driver.Extent
}

// textureFormat is the format of all textures.
const textureFormat = vk.FormatR8g8b8a8Srgb

// NewTexture creates a sampled texture from img.
// The pixel data is uploaded through a staging buffer and
// the texture is left in the shader read-only layout.
func (d *Driver) NewTexture(img *image.RGBA) (driver.Texture, error) {
	b := img.Bounds()
	size := driver.Extent{Width: b.Dx(), Height: b.Dy()}
	if size.IsZero() {
		return nil, errors.New("vk: empty texture image")
	}
	if size.Width > d.lim.MaxImage2D || size.Height > d.lim.MaxImage2D {
		return nil, errors.Errorf("vk: texture size %dx%d exceeds limit %d", size.Width, size.Height, d.lim.MaxImage2D)
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    textureFormat,
		Extent: vk.Extent3D{
			Width:  uint32(size.Width),
			Height: uint32(size.Height),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var vimg vk.Image
	if err := checkResult(vk.CreateImage(d.dev, &info, nil, &vimg)); err != nil {
		return nil, err
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, vimg, &req)
	m, err := d.newMemory(req, false)
	if err != nil {
		vk.DestroyImage(d.dev, vimg, nil)
		return nil, err
	}
	if err = checkResult(vk.BindImageMemory(d.dev, vimg, m.mem, 0)); err != nil {
		m.free()
		vk.DestroyImage(d.dev, vimg, nil)
		return nil, err
	}
	m.bound = true
	t := &texture{m: m, img: vimg, size: size}

	if err = d.uploadTexture(t, img); err != nil {
		t.Destroy()
		return nil, err
	}
	iv, err := d.NewView(vimg, driver.Format(textureFormat))
	if err != nil {
		t.Destroy()
		return nil, err
	}
	t.view = iv.(*imageView).view
	return t, nil
}

// uploadTexture copies the pixels of img into t.
func (d *Driver) uploadTexture(t *texture, img *image.RGBA) error {
	n := t.size.Width * t.size.Height * 4
	stg, err := d.NewBuffer(int64(n), true, driver.UCopySrc)
	if err != nil {
		return errors.Wrap(err, "vk: texture staging buffer")
	}
	defer stg.Destroy()
	p := stg.Bytes()
	// img.Stride may include padding.
	row := t.size.Width * 4
	for y := 0; y < t.size.Height; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(p[y*row:(y+1)*row], img.Pix[off:off+row])
	}

	return d.oneShot(func(cb vk.CommandBuffer) {
		transition(cb, t.img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		region := vk.BufferImageCopy{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  uint32(t.size.Width),
				Height: uint32(t.size.Height),
				Depth:  1,
			},
		}
		vk.CmdCopyBufferToImage(cb, stg.(*buffer).buf, t.img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
		transition(cb, t.img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

// barrierOf returns the access masks and pipeline stages
// of a layout transition. ok is false for transitions
// that textures never go through.
func barrierOf(from, to vk.ImageLayout) (acc1, acc2 vk.AccessFlags, stg1, stg2 vk.PipelineStageFlags, ok bool) {
	switch {
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutTransferDstOptimal:
		acc2 = vk.AccessFlags(vk.AccessTransferWriteBit)
		stg1 = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		stg2 = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case from == vk.ImageLayoutTransferDstOptimal && to == vk.ImageLayoutShaderReadOnlyOptimal:
		acc1 = vk.AccessFlags(vk.AccessTransferWriteBit)
		acc2 = vk.AccessFlags(vk.AccessShaderReadBit)
		stg1 = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		stg2 = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return
	}
	ok = true
	return
}

// transition records an image layout transition in cb.
func transition(cb vk.CommandBuffer, img vk.Image, from, to vk.ImageLayout) {
	acc1, acc2, stg1, stg2, ok := barrierOf(from, to)
	if !ok {
		panic("unsupported layout transition")
	}
	imb := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       acc1,
		DstAccessMask:       acc2,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    colorRange(),
	}
	vk.CmdPipelineBarrier(cb, stg1, stg2, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{imb})
}

// Size returns the size of the texture.
func (t *texture) Size() driver.Extent { return t.size }

// Destroy destroys the texture.
func (t *texture) Destroy() {
	if t == nil {
		return
	}
	if t.m != nil {
		dev := t.m.d.dev
		if t.view != vk.ImageView(vk.NullHandle) {
			vk.DestroyImageView(dev, t.view, nil)
		}
		vk.DestroyImage(dev, t.img, nil)
		t.m.free()
	}
	*t = texture{}
}
