// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"image"
)

// GPU is the main interface to an underlying driver
// implementation. It plays the role of device provider:
// it exposes queue family capabilities, the presentation
// surface and its support, and creates every other type.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// DeviceName returns the name of the selected device.
	DeviceName() string

	// Devices describes every device that was considered
	// during selection, in enumeration order.
	Devices() []DeviceInfo

	// Families returns the queue families used for
	// graphics and presentation.
	Families() QueueFamilies

	// Surface returns the presentation surface created
	// from the window given to Driver.Open.
	Surface() Surface

	// SurfaceSupport queries the current capabilities,
	// formats and present modes of s.
	// Capabilities change as the window is resized, so
	// callers should query again before creating a chain.
	SurfaceSupport(s Surface) (SurfaceSupport, error)

	// NewChain creates a new chain of presentable images.
	NewChain(s Surface, info *ChainInfo) (Chain, error)

	// NewView creates a new 2D color view of img.
	NewView(img Image, f Format) (ImageView, error)

	// NewFence creates a new fence.
	// If signaled is true, the first wait on the fence
	// returns immediately.
	NewFence(signaled bool) (Fence, error)

	// NewSemaphore creates a new binary semaphore.
	NewSemaphore() (Semaphore, error)

	// NewCmdBuffer creates a new command buffer for the
	// graphics queue.
	NewCmdBuffer() (CmdBuffer, error)

	// Submit submits a recorded command buffer to the
	// graphics queue. The command buffer must not be
	// reset or re-recorded until s.Fence is signaled.
	Submit(cb CmdBuffer, s *SubmitSync) error

	// WaitIdle blocks until the device has no work
	// pending in any queue.
	WaitIdle() error

	// NewRenderPass creates a new render pass with a
	// single color attachment of format f that is
	// cleared on load and left ready for presentation.
	NewRenderPass(f Format) (RenderPass, error)

	// NewFramebuf creates a new framebuffer.
	NewFramebuf(pass RenderPass, iv []ImageView, size Extent) (Framebuf, error)

	// NewShaderCode creates a new shader code from SPIR-V
	// binary data.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewPipeline creates a new graphics pipeline.
	NewPipeline(state *GraphState) (Pipeline, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// WriteBuffer copies data into buf at offset off.
	// For buffers that are not host visible, the copy
	// goes through a staging buffer and a one-shot
	// submission, and blocks until the queue is idle.
	WriteBuffer(buf Buffer, off int64, data []byte) error

	// NewTexture creates a new sampled texture from img.
	// The upload is a blocking one-shot operation.
	NewTexture(img *image.RGBA) (Texture, error)

	// NewSampler creates a new sampler.
	NewSampler(spln *Sampling) (Sampler, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// DeviceType is the type of a physical device.
type DeviceType int

// Device types.
const (
	DevOther DeviceType = iota
	DevIntegrated
	DevDiscrete
	DevVirtual
	DevCPU
)

func (t DeviceType) String() string {
	switch t {
	case DevIntegrated:
		return "integrated"
	case DevDiscrete:
		return "discrete"
	case DevVirtual:
		return "virtual"
	case DevCPU:
		return "cpu"
	}
	return "other"
}

// DeviceInfo describes a physical device.
type DeviceInfo struct {
	Name string
	Type DeviceType
	// API version as major, minor, patch.
	API [3]int
	// Families is only meaningful if the device has
	// both graphics and present families.
	Families QueueFamilies
	// Memory is the total size of the device-local
	// heaps in bytes.
	Memory int64
	// Suitable reports whether the device can run the
	// harness.
	Suitable bool
	// Selected reports whether the device is the one
	// in use.
	Selected bool
}

// QueueFamilies identifies the queue families used for
// each capability. Graphics and Present may be equal.
type QueueFamilies struct {
	Graphics int
	Present  int
}

// Unique returns the distinct families in q.
func (q QueueFamilies) Unique() []int {
	if q.Graphics == q.Present {
		return []int{q.Graphics}
	}
	return []int{q.Graphics, q.Present}
}

// Fence is the interface that defines a synchronization
// primitive the CPU can wait on for GPU completion.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled.
	// It does not time out: a device that never signals
	// is reported as an error by the driver, if at all.
	Wait() error

	// Reset sets the fence to the unsignaled state.
	Reset() error
}

// Semaphore is the interface that defines a synchronization
// primitive between GPU operations.
type Semaphore interface {
	Destroyer
}

// SubmitSync describes the synchronization of a submission.
type SubmitSync struct {
	// Wait semaphores must be signaled before the stage
	// at the same index of WaitSync executes.
	Wait     []Semaphore
	WaitSync []Sync
	// Signal semaphores are signaled when the submission
	// completes.
	Signal []Semaphore
	// Fence, if not nil, is signaled when the submission
	// completes.
	Fence Fence
}

// CmdBuffer is the interface that defines a command buffer.
// The usage is as follows:
//
//  1. call Reset, if the command buffer was used before
//  2. call Begin
//  3. call BeginPass
//  4. call Set* methods to configure rendering state
//  5. call DrawIndexed
//  6. call EndPass
//  7. call End and, if it succeeds, GPU.Submit
type CmdBuffer interface {
	Destroyer

	// Reset discards any recorded commands.
	// It must not be called while a submission of the
	// command buffer is pending.
	Reset() error

	// Begin prepares the command buffer for recording.
	Begin() error

	// End ends command recording.
	End() error

	// BeginPass begins the render pass on fb, clearing
	// the color attachment to clear.
	BeginPass(pass RenderPass, fb Framebuf, area Extent, clear [4]float32)

	// EndPass ends the current render pass.
	EndPass()

	// SetPipeline sets the graphics pipeline.
	SetPipeline(pl Pipeline)

	// SetViewport sets the viewport.
	SetViewport(vp Viewport)

	// SetScissor sets the scissor rectangle.
	SetScissor(sciss Scissor)

	// SetVertexBuf sets the vertex buffer.
	SetVertexBuf(buf Buffer, off int64)

	// SetIndexBuf sets the index buffer.
	SetIndexBuf(f IndexFmt, buf Buffer, off int64)

	// SetDescHeap binds the copy cpy of dh to the
	// pipeline layout of pl.
	SetDescHeap(pl Pipeline, dh DescHeap, cpy int)

	// DrawIndexed draws indexed primitives.
	DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)
}

// Sync is the type of pipeline stages used as
// synchronization scopes.
type Sync int

// Synchronization scopes.
const (
	STopOfPipe Sync = 1 << iota
	SVertexInput
	SVertexShading
	SFragmentShading
	SColorOutput
	SCopy
	SAll
	SNone Sync = 0
)

// RenderPass is the interface that defines a render pass.
type RenderPass interface {
	Destroyer
}

// Framebuf is the interface that defines the render
// targets of a render pass.
type Framebuf interface {
	Destroyer
}

// Image is the interface that defines an image owned by
// a chain.
type Image interface{}

// ImageView is the interface that defines a view of an
// image.
type ImageView interface {
	Destroyer
}

// Texture is the interface that defines a sampled image
// and its view.
type Texture interface {
	Destroyer

	// Size returns the dimensions of the texture.
	Size() Extent
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code  ShaderCode
	Name  string
	Stage Stage
}

// Stage is a mask of programmable stages.
type Stage int

// Stages.
const (
	SVertex Stage = 1 << iota
	SFragment

	// SAllStages is the sentinel used for shaders whose
	// stage could not be determined.
	SAllStages Stage = 1<<iota - 1
)

func (s Stage) String() string {
	switch s {
	case SVertex:
		return "vertex"
	case SFragment:
		return "fragment"
	case SAllStages:
		return "all"
	}
	return "unknown"
}

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Constant (uniform) buffer.
	DConstant DescType = iota
	// Sampled texture.
	DTexture
	// Texture sampler.
	DSampler
)

// Descriptor describes data for use in shaders.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// DescHeap is the interface that defines a set of descriptors
// for use in programmable pipeline stages.
type DescHeap interface {
	Destroyer

	// New creates enough storage for n copies of each
	// descriptor.
	// Calling New(0) frees all storage.
	New(n int) error

	// SetBuffer updates the buffer range referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DConstant.
	SetBuffer(cpy, nr int, buf Buffer, off, size int64)

	// SetTexture updates the texture referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DTexture.
	SetTexture(cpy, nr int, tex Texture)

	// SetSampler updates the sampler referred by the
	// given descriptor of the given heap copy.
	// The descriptor must be of type DSampler.
	SetSampler(cpy, nr int, splr Sampler)

	// Count returns the number of heap copies created
	// by New.
	Count() int
}

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	Float32 VertexFmt = iota
	Float32x2
	Float32x3
	Float32x4
)

// VertexIn describes a vertex input.
// All inputs are fetched from a single interleaved
// buffer binding, Stride bytes apart.
type VertexIn struct {
	Format VertexFmt
	Offset int
	Nr     int
}

// Topology is the type of primitive topologies,
// which determines how vertex data is assembled.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TTriangle
	TTriStrip
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// CullMode is the type of cull modes, which
// determines primitive culling based on triangle
// facing direction.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// RasterState defines the rasterization state of a
// graphics pipeline.
type RasterState struct {
	// Winding order is either clockwise or counter-clockwise.
	Clockwise bool
	Cull      CullMode
}

// BlendFac is the type of blend factors.
type BlendFac int

// Blend factors.
const (
	BZero BlendFac = iota
	BOne
	BSrcAlpha
	BInvSrcAlpha
)

// ColorBlend defines the blend state of the color
// attachment. Op is always addition.
type ColorBlend struct {
	Blend bool
	// The first element of each array refers to RGB,
	// the second to alpha.
	SrcFac [2]BlendFac
	DstFac [2]BlendFac
}

// GraphState defines the combination of programmable and
// fixed stages of a graphics pipeline.
// Viewport and scissor are always dynamic.
type GraphState struct {
	VertFunc ShaderFunc
	FragFunc ShaderFunc
	Desc     DescHeap
	Stride   int
	Input    []VertexIn
	Topology Topology
	Raster   RasterState
	Blend    ColorBlend
	Pass     RenderPass
}

// Pipeline is the interface that defines a graphics
// pipeline.
type Pipeline interface {
	Destroyer
}

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags.
const (
	// Constant (uniform) buffer.
	UShaderConst Usage = 1 << iota
	// Vertex buffer.
	UVertexData
	// Index buffer.
	UIndexData
	// Source of copy operations.
	UCopySrc
	// Destination of copy operations.
	UCopyDst
)

// Buffer is the interface that defines a GPU buffer.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	Visible() bool

	// Bytes returns a slice of length Cap referring to
	// the underlying data.
	// It returns nil if the buffer is not host visible.
	// The slice is valid for the lifetime of the buffer.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes.
	Cap() int64
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// AddrMode is the type of sampler addressing modes.
type AddrMode int

// Addressing modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// Sampling describes a sampler.
type Sampling struct {
	Min    Filter
	Mag    Filter
	Mipmap Filter
	AddrU  AddrMode
	AddrV  AddrMode
	// MaxAniso greater than 1 enables anisotropic
	// filtering, clamped to Limits.MaxAniso.
	MaxAniso float32
}

// Sampler is the interface that defines a texture
// sampler.
type Sampler interface {
	Destroyer
}

// Limits describes the implementation limits.
type Limits struct {
	// MaxAniso is zero if anisotropic filtering is
	// not supported.
	MaxAniso float32

	MaxImage2D int
}
