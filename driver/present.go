// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// Extent is the size of a render target in pixels.
type Extent struct {
	Width  int
	Height int
}

// IsZero returns whether either dimension of e is zero.
func (e Extent) IsZero() bool { return e.Width <= 0 || e.Height <= 0 }

// SpecialExtent is the value that a surface reports as its
// current extent when the extent is determined by the
// swapchain rather than by the surface.
const SpecialExtent = 0xFFFFFFFF

// Format describes the format of a presentable image.
// Values mirror the underlying API's enumerants so that
// a format that the driver does not name explicitly can
// still round-trip through selection.
type Format int

// Image formats.
const (
	FormatUndefined    Format = 0
	FormatRGBA8Unorm   Format = 37
	FormatRGBA8sRGB    Format = 43
	FormatBGRA8Unorm   Format = 44
	FormatBGRA8sRGB    Format = 50
	FormatRGB10A2Unorm Format = 64
)

// ColorSpace describes how a presentation engine
// interprets image data.
type ColorSpace int

// Color spaces.
const (
	ColorSpaceSRGBNonlinear ColorSpace = 0
)

// SurfaceFormat is a format/color space pair supported
// by a surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode is the presentation mode of a chain.
type PresentMode int

// Present modes.
const (
	// PresentImmediate does not wait for vertical blank.
	PresentImmediate PresentMode = iota
	// PresentMailbox replaces the pending image on each
	// present (low-latency, triple-buffered).
	PresentMailbox
	// PresentFIFO queues images and presents on vertical
	// blank. It is always supported.
	PresentFIFO
	// PresentFIFORelaxed is like PresentFIFO but does not
	// wait if the queue emptied.
	PresentFIFORelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentImmediate:
		return "immediate"
	case PresentMailbox:
		return "mailbox"
	case PresentFIFO:
		return "fifo"
	case PresentFIFORelaxed:
		return "fifo-relaxed"
	}
	return "unknown"
}

// SurfaceCaps are the capabilities of a surface as queried
// from a specific device.
type SurfaceCaps struct {
	// MinImages is the minimum number of images the
	// chain must have.
	MinImages int
	// MaxImages is the maximum number of images the
	// chain may have. Zero means no limit.
	MaxImages int
	// CurrentExtent is the current size of the surface,
	// or SpecialExtent in both dimensions if the size is
	// determined by the chain.
	CurrentExtent Extent
	MinExtent     Extent
	MaxExtent     Extent
	// CurrentTransform is passed through to chain creation
	// as the pre-transform.
	CurrentTransform uint32
}

// SurfaceSupport gathers what a device supports for a given
// surface.
type SurfaceSupport struct {
	Caps    SurfaceCaps
	Formats []SurfaceFormat
	Modes   []PresentMode
}

// Surface is the interface that defines a presentation
// surface. It is created by the driver from a window and
// remains valid until destroyed.
type Surface interface {
	Destroyer
}

// Sharing is the sharing mode of chain images.
type Sharing int

// Sharing modes.
const (
	// SharingExclusive means that the images are owned by
	// a single queue family at a time.
	SharingExclusive Sharing = iota
	// SharingConcurrent means that the images can be used
	// by multiple queue families with no ownership
	// transfers.
	SharingConcurrent
)

// ChainInfo describes a chain to be created.
type ChainInfo struct {
	Images      int
	Format      SurfaceFormat
	PresentMode PresentMode
	Extent      Extent
	Sharing     Sharing
	// Families are the queue families that will access
	// the images. Only meaningful for SharingConcurrent.
	Families  []int
	Transform uint32
	// Old is the chain being replaced, if any.
	// It is retired but not destroyed by chain creation.
	Old Chain
}

// Status is the outcome of an acquire or present operation
// that did not fail outright.
type Status int

// Presentation statuses.
const (
	// StatusOK means that the operation succeeded and the
	// chain still matches the surface.
	StatusOK Status = iota
	// StatusSuboptimal means that the operation succeeded
	// but the chain no longer matches the surface exactly.
	StatusSuboptimal
	// StatusOutOfDate means that the chain is unusable and
	// must be recreated. Nothing was acquired or presented.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return "unknown"
}

// Chain is the interface that defines a chain of
// presentable images (i.e., a swapchain).
// A Chain is immutable: resizing is done by creating a
// new chain that replaces the old one.
type Chain interface {
	Destroyer

	// Images returns the chain's presentable images,
	// in image order. The images are owned by the chain
	// and must not be destroyed by the caller. Views of
	// them are created with GPU.NewView and must be
	// destroyed before the chain.
	Images() []Image

	// Acquire acquires the next presentable image.
	// sem is signaled when the image is ready to be
	// written to. The returned index is only valid if
	// the status is not StatusOutOfDate.
	// A non-nil error means that the failure is not
	// recoverable by recreating the chain.
	Acquire(sem Semaphore) (int, Status, error)

	// Present queues the image identified by index for
	// presentation, after all semaphores in wait are
	// signaled.
	Present(index int, wait []Semaphore) (Status, error)
}
