// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/wsi"
)

// surface implements driver.Surface.
type surface struct {
	d  *Driver
	sf vk.Surface
}

// newSurface creates a new surface for win.
func (d *Driver) newSurface(win wsi.Window) (*surface, error) {
	p, err := win.CreateSurface(d.inst)
	if err != nil {
		return nil, err
	}
	return &surface{d: d, sf: vk.SurfaceFromPointer(p)}, nil
}

// Destroy destroys the surface.
func (s *surface) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil && s.sf != vk.NullSurface {
		vk.DestroySurface(s.d.inst, s.sf, nil)
	}
	*s = surface{}
}

// Surface returns the presentation surface.
func (d *Driver) Surface() driver.Surface { return d.sf }

// SurfaceSupport queries what the device supports for s.
func (d *Driver) SurfaceSupport(s driver.Surface) (driver.SurfaceSupport, error) {
	return supportOf(d.pdev, s.(*surface).sf)
}

// supportOf queries the surface support of a physical
// device.
func supportOf(dev vk.PhysicalDevice, sf vk.Surface) (spt driver.SurfaceSupport, err error) {
	var caps vk.SurfaceCapabilities
	if err = checkResult(vk.GetPhysicalDeviceSurfaceCapabilities(dev, sf, &caps)); err != nil {
		return
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	spt.Caps = driver.SurfaceCaps{
		MinImages:        int(caps.MinImageCount),
		MaxImages:        int(caps.MaxImageCount),
		CurrentExtent:    convExtent(caps.CurrentExtent),
		MinExtent:        convExtent(caps.MinImageExtent),
		MaxExtent:        convExtent(caps.MaxImageExtent),
		CurrentTransform: uint32(caps.CurrentTransform),
	}

	var n uint32
	if err = checkResult(vk.GetPhysicalDeviceSurfaceFormats(dev, sf, &n, nil)); err != nil {
		return
	}
	fmts := make([]vk.SurfaceFormat, n)
	if n > 0 {
		if err = checkResult(vk.GetPhysicalDeviceSurfaceFormats(dev, sf, &n, fmts)); err != nil {
			return
		}
	}
	spt.Formats = make([]driver.SurfaceFormat, 0, n)
	for i := range fmts[:n] {
		fmts[i].Deref()
		spt.Formats = append(spt.Formats, driver.SurfaceFormat{
			Format:     driver.Format(fmts[i].Format),
			ColorSpace: driver.ColorSpace(fmts[i].ColorSpace),
		})
	}

	if err = checkResult(vk.GetPhysicalDeviceSurfacePresentModes(dev, sf, &n, nil)); err != nil {
		return
	}
	modes := make([]vk.PresentMode, n)
	if n > 0 {
		if err = checkResult(vk.GetPhysicalDeviceSurfacePresentModes(dev, sf, &n, modes)); err != nil {
			return
		}
	}
	spt.Modes = make([]driver.PresentMode, 0, n)
	for _, m := range modes[:n] {
		if pm, ok := convPresentModeFrom(m); ok {
			spt.Modes = append(spt.Modes, pm)
		}
	}
	return
}

// chain implements driver.Chain.
type chain struct {
	d    *Driver
	sc   vk.Swapchain
	imgs []driver.Image
}

// NewChain creates a new swapchain.
func (d *Driver) NewChain(s driver.Surface, info *driver.ChainInfo) (driver.Chain, error) {
	if info.Extent.IsZero() {
		return nil, errors.Errorf("vk: invalid chain extent %dx%d", info.Extent.Width, info.Extent.Height)
	}
	sf := s.(*surface).sf

	var caps vk.SurfaceCapabilities
	if err := checkResult(vk.GetPhysicalDeviceSurfaceCapabilities(d.pdev, sf, &caps)); err != nil {
		return nil, err
	}
	caps.Deref()

	old := vk.Swapchain(vk.NullSwapchain)
	if info.Old != nil {
		old = info.Old.(*chain).sc
	}
	ci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         sf,
		MinImageCount:   uint32(info.Images),
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  uint32(info.Extent.Width),
			Height: uint32(info.Extent.Height),
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformFlagBits(info.Transform),
		CompositeAlpha:   compositeAlpha(vk.CompositeAlphaFlags(caps.SupportedCompositeAlpha)),
		PresentMode:      convPresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	switch info.Sharing {
	case driver.SharingConcurrent:
		fams := make([]uint32, len(info.Families))
		for i, f := range info.Families {
			fams[i] = uint32(f)
		}
		ci.ImageSharingMode = vk.SharingModeConcurrent
		ci.QueueFamilyIndexCount = uint32(len(fams))
		ci.PQueueFamilyIndices = fams
	default:
		ci.ImageSharingMode = vk.SharingModeExclusive
	}

	var sc vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(d.dev, &ci, nil, &sc)); err != nil {
		return nil, errors.Wrap(err, "vk: vkCreateSwapchainKHR")
	}
	var n uint32
	if err := checkResult(vk.GetSwapchainImages(d.dev, sc, &n, nil)); err != nil {
		vk.DestroySwapchain(d.dev, sc, nil)
		return nil, err
	}
	imgs := make([]vk.Image, n)
	if err := checkResult(vk.GetSwapchainImages(d.dev, sc, &n, imgs)); err != nil {
		vk.DestroySwapchain(d.dev, sc, nil)
		return nil, err
	}
	c := &chain{d: d, sc: sc, imgs: make([]driver.Image, n)}
	for i := range c.imgs {
		c.imgs[i] = imgs[i]
	}
	logger.Debugf("swapchain created: %d images, %dx%d, %v", n, info.Extent.Width, info.Extent.Height, info.PresentMode)
	return c, nil
}

// compositeAlpha picks opaque composition if supported,
// and the first supported mode otherwise.
func compositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	if supported&vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit) != 0 {
		return vk.CompositeAlphaOpaqueBit
	}
	calpha := vk.CompositeAlphaFlagBits(1)
	for i := 0; i < 32; i++ {
		if vk.CompositeAlphaFlags(calpha)&supported != 0 {
			return calpha
		}
		calpha <<= 1
	}
	return vk.CompositeAlphaOpaqueBit
}

// Images returns the swapchain images.
func (c *chain) Images() []driver.Image { return c.imgs }

// Acquire acquires the next image.
func (c *chain) Acquire(sem driver.Semaphore) (int, driver.Status, error) {
	var idx uint32
	res := vk.AcquireNextImage(c.d.dev, c.sc, math.MaxUint64, sem.(*semaphore).sem, vk.NullFence, &idx)
	st, err := presentStatus(res)
	if err != nil || st == driver.StatusOutOfDate {
		return -1, st, err
	}
	return int(idx), st, nil
}

// Present presents the image identified by index.
func (c *chain) Present(index int, wait []driver.Semaphore) (driver.Status, error) {
	sems := make([]vk.Semaphore, len(wait))
	for i := range wait {
		sems[i] = wait[i].(*semaphore).sem
	}
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(sems)),
		PWaitSemaphores:    sems,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.sc},
		PImageIndices:      []uint32{uint32(index)},
	}
	c.d.qmu.Lock()
	res := vk.QueuePresent(c.d.pque, &info)
	c.d.qmu.Unlock()
	return presentStatus(res)
}

// Destroy destroys the swapchain.
// Views of its images must have been destroyed.
func (c *chain) Destroy() {
	if c == nil {
		return
	}
	if c.d != nil && c.sc != vk.NullSwapchain {
		vk.DestroySwapchain(c.d.dev, c.sc, nil)
	}
	*c = chain{}
}

// presentStatus maps the result of an acquire or present
// operation into a driver.Status.
// Results other than success, suboptimal and out of date
// are returned as errors.
func presentStatus(res vk.Result) (driver.Status, error) {
	switch res {
	case vk.Success:
		return driver.StatusOK, nil
	case vk.Suboptimal:
		return driver.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return driver.StatusOutOfDate, nil
	case vk.Timeout, vk.NotReady:
		return driver.StatusOK, errors.Errorf("vk: unexpected result %d with no timeout", res)
	}
	if err := checkResult(res); err != nil {
		return driver.StatusOK, err
	}
	return driver.StatusOK, nil
}

// imageView implements driver.ImageView.
type imageView struct {
	d    *Driver
	view vk.ImageView
}

// NewView creates a new image view.
func (d *Driver) NewView(img driver.Image, f driver.Format) (driver.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.(vk.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(f),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorRange(),
	}
	var view vk.ImageView
	if err := checkResult(vk.CreateImageView(d.dev, &info, nil, &view)); err != nil {
		return nil, err
	}
	return &imageView{d: d, view: view}, nil
}

// Destroy destroys the image view.
func (v *imageView) Destroy() {
	if v == nil {
		return
	}
	if v.d != nil {
		vk.DestroyImageView(v.d.dev, v.view, nil)
	}
	*v = imageView{}
}

func colorRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
}

func convExtent(e vk.Extent2D) driver.Extent {
	return driver.Extent{Width: int(e.Width), Height: int(e.Height)}
}

func convPresentMode(m driver.PresentMode) vk.PresentMode {
	switch m {
	case driver.PresentImmediate:
		return vk.PresentModeImmediate
	case driver.PresentMailbox:
		return vk.PresentModeMailbox
	case driver.PresentFIFORelaxed:
		return vk.PresentModeFifoRelaxed
	}
	return vk.PresentModeFifo
}

func convPresentModeFrom(m vk.PresentMode) (driver.PresentMode, bool) {
	switch m {
	case vk.PresentModeImmediate:
		return driver.PresentImmediate, true
	case vk.PresentModeMailbox:
		return driver.PresentMailbox, true
	case vk.PresentModeFifo:
		return driver.PresentFIFO, true
	case vk.PresentModeFifoRelaxed:
		return driver.PresentFIFORelaxed, true
	}
	return 0, false
}
