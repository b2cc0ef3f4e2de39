// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"path/filepath"
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/engine/internal/shader"
)

func newRendErr(s string) error { return errors.New("renderer: " + s) }

var errSyncSet = newRendErr("invalid synchronization set")

// vertex is the layout of quad vertices.
type vertex struct {
	pos   [2]float32
	color [3]float32
	uv    [2]float32
}

const vertexStride = int(unsafe.Sizeof(vertex{}))

var quadVertices = [4]vertex{
	{[2]float32{-0.5, -0.5}, [3]float32{1, 0, 0}, [2]float32{1, 0}},
	{[2]float32{0.5, -0.5}, [3]float32{0, 1, 0}, [2]float32{0, 0}},
	{[2]float32{0.5, 0.5}, [3]float32{0, 0, 1}, [2]float32{0, 1}},
	{[2]float32{-0.5, 0.5}, [3]float32{1, 1, 1}, [2]float32{1, 1}},
}

var quadIndices = [6]uint16{0, 1, 2, 2, 3, 0}

var quadInput = []driver.VertexIn{
	{Format: driver.Float32x2, Offset: int(unsafe.Offsetof(vertex{}.pos)), Nr: 0},
	{Format: driver.Float32x3, Offset: int(unsafe.Offsetof(vertex{}.color)), Nr: 1},
	{Format: driver.Float32x2, Offset: int(unsafe.Offsetof(vertex{}.uv)), Nr: 2},
}

// Renderer records and submits the commands that draw a
// textured, rotating quad into chain images.
// It has one command buffer, uniform buffer and heap
// copy per frame slot, and one framebuffer per chain
// image.
type Renderer struct {
	gpu   driver.GPU
	mgr   *Manager
	clear [4]float32
	start time.Time

	format driver.Format
	pass   driver.RenderPass
	code   [2]driver.ShaderCode
	heap   driver.DescHeap
	pl     driver.Pipeline

	vbuf driver.Buffer
	ibuf driver.Buffer
	ubuf []driver.Buffer
	tex  driver.Texture
	splr driver.Sampler

	cb []driver.CmdBuffer
	fb []driver.Framebuf

	xform shader.TransformLayout
}

// NewRenderer creates a new Renderer that renders to the
// images of mgr.
// It creates cfg.FramesInFlight frame slots.
func NewRenderer(gpu driver.GPU, mgr *Manager, cfg *Config) (r *Renderer, err error) {
	if gpu == nil || mgr == nil {
		return nil, newRendErr("nil argument in call to NewRenderer")
	}
	n := cfg.FramesInFlight
	if n < 1 || n > MaxFrame {
		return nil, newRendErr("frames in flight out of range")
	}
	r = &Renderer{
		gpu:    gpu,
		mgr:    mgr,
		clear:  cfg.ClearColor,
		format: mgr.Format(),
	}
	defer func() {
		if err != nil {
			r.Destroy()
			r = nil
		}
	}()
	if r.pass, err = gpu.NewRenderPass(r.format); err != nil {
		return nil, errors.Wrap(err, "renderer: render pass")
	}
	if err = r.loadShaders(cfg.ShaderDir, cfg.Shaders); err != nil {
		return
	}
	if r.heap, err = shader.NewHeap(gpu); err != nil {
		return nil, errors.Wrap(err, "renderer: descriptor heap")
	}
	if err = r.newPipeline(); err != nil {
		return
	}
	if err = r.newQuad(); err != nil {
		return
	}
	if err = r.newTexture(cfg.Texture); err != nil {
		return
	}
	if err = r.newSlots(n); err != nil {
		return
	}
	if err = r.CreateFramebuffers(); err != nil {
		return
	}
	r.start = time.Now()
	return r, nil
}

// loadShaders loads the vertex and fragment shaders.
func (r *Renderer) loadShaders(dir string, names []string) error {
	for _, name := range names {
		src, err := shader.Load(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		var i int
		switch src.Stage {
		case driver.SVertex:
			i = 0
		case driver.SFragment:
			i = 1
		default:
			return newRendErr("cannot infer stage of shader " + src.Name)
		}
		if r.code[i] != nil {
			return newRendErr("more than one " + src.Stage.String() + " shader")
		}
		if r.code[i], err = r.gpu.NewShaderCode(src.Code); err != nil {
			return errors.Wrapf(err, "renderer: shader %s", src.Name)
		}
	}
	if r.code[0] == nil || r.code[1] == nil {
		return newRendErr("missing vertex or fragment shader")
	}
	return nil
}

// newPipeline creates the graphics pipeline.
// The render pass, shaders and heap must have been
// created already.
func (r *Renderer) newPipeline() (err error) {
	r.pl, err = r.gpu.NewPipeline(&driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: r.code[0], Name: shader.EntryPoint, Stage: driver.SVertex},
		FragFunc: driver.ShaderFunc{Code: r.code[1], Name: shader.EntryPoint, Stage: driver.SFragment},
		Desc:     r.heap,
		Stride:   vertexStride,
		Input:    quadInput,
		Topology: driver.TTriangle,
		Raster: driver.RasterState{
			Clockwise: false,
			Cull:      driver.CBack,
		},
		Blend: driver.ColorBlend{
			Blend:  true,
			SrcFac: [2]driver.BlendFac{driver.BSrcAlpha, driver.BOne},
			DstFac: [2]driver.BlendFac{driver.BInvSrcAlpha, driver.BZero},
		},
		Pass: r.pass,
	})
	return errors.Wrap(err, "renderer: pipeline")
}

// newQuad creates the vertex and index buffers.
func (r *Renderer) newQuad() (err error) {
	vdata := unsafe.Slice((*byte)(unsafe.Pointer(&quadVertices[0])), unsafe.Sizeof(quadVertices))
	idata := unsafe.Slice((*byte)(unsafe.Pointer(&quadIndices[0])), unsafe.Sizeof(quadIndices))
	if r.vbuf, err = r.newStaticBuffer(vdata, driver.UVertexData); err != nil {
		return errors.Wrap(err, "renderer: vertex buffer")
	}
	if r.ibuf, err = r.newStaticBuffer(idata, driver.UIndexData); err != nil {
		return errors.Wrap(err, "renderer: index buffer")
	}
	return nil
}

// newStaticBuffer creates a device-local buffer holding
// a copy of data.
func (r *Renderer) newStaticBuffer(data []byte, usg driver.Usage) (driver.Buffer, error) {
	buf, err := r.gpu.NewBuffer(int64(len(data)), false, usg|driver.UCopyDst)
	if err != nil {
		return nil, err
	}
	if err = r.gpu.WriteBuffer(buf, 0, data); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

// newTexture creates the texture and its sampler.
func (r *Renderer) newTexture(path string) (err error) {
	lim := r.gpu.Limits()
	img, err := loadImage(path, lim.MaxImage2D)
	if err != nil {
		return
	}
	if r.tex, err = r.gpu.NewTexture(img); err != nil {
		return errors.Wrap(err, "renderer: texture")
	}
	r.splr, err = r.gpu.NewSampler(&driver.Sampling{
		Min:      driver.FLinear,
		Mag:      driver.FLinear,
		Mipmap:   driver.FLinear,
		AddrU:    driver.AWrap,
		AddrV:    driver.AWrap,
		MaxAniso: lim.MaxAniso,
	})
	return errors.Wrap(err, "renderer: sampler")
}

// newSlots creates n command buffers and uniform buffers,
// and n heap copies referring to them.
func (r *Renderer) newSlots(n int) error {
	if err := r.heap.New(n); err != nil {
		return errors.Wrap(err, "renderer: descriptor heap copies")
	}
	r.ubuf = make([]driver.Buffer, 0, n)
	r.cb = make([]driver.CmdBuffer, 0, n)
	for i := 0; i < n; i++ {
		buf, err := r.gpu.NewBuffer(shader.TransformSize, true, driver.UShaderConst)
		if err != nil {
			return errors.Wrap(err, "renderer: uniform buffer")
		}
		r.ubuf = append(r.ubuf, buf)
		r.heap.SetBuffer(i, shader.TransformNr, buf, 0, shader.TransformSize)
		r.heap.SetTexture(i, shader.ColorTexNr, r.tex)
		r.heap.SetSampler(i, shader.ColorSplrNr, r.splr)
		cb, err := r.gpu.NewCmdBuffer()
		if err != nil {
			return errors.Wrap(err, "renderer: command buffer")
		}
		r.cb = append(r.cb, cb)
	}
	return nil
}

// CreateFramebuffers creates one framebuffer per view of
// the Manager's chain.
// If the chain format changed, the render pass and the
// pipeline are created again.
// It must be called after Manager.Recreate and must not
// be called twice without a DestroyFramebuffers call in
// between.
func (r *Renderer) CreateFramebuffers() error {
	if f := r.mgr.Format(); f != r.format {
		if err := r.newPass(f); err != nil {
			return err
		}
	}
	views := r.mgr.Views()
	size := r.mgr.Extent()
	r.fb = make([]driver.Framebuf, 0, len(views))
	for _, iv := range views {
		fb, err := r.gpu.NewFramebuf(r.pass, []driver.ImageView{iv}, size)
		if err != nil {
			r.DestroyFramebuffers()
			return errors.Wrap(err, "renderer: framebuffer")
		}
		r.fb = append(r.fb, fb)
	}
	return nil
}

// newPass replaces the render pass and pipeline with
// ones that target format f.
func (r *Renderer) newPass(f driver.Format) (err error) {
	logger.Infof("chain format changed (%d -> %d)", r.format, f)
	r.pl.Destroy()
	r.pl = nil
	r.pass.Destroy()
	r.pass = nil
	if r.pass, err = r.gpu.NewRenderPass(f); err != nil {
		return errors.Wrap(err, "renderer: render pass")
	}
	r.format = f
	return r.newPipeline()
}

// DestroyFramebuffers destroys the framebuffers.
// It must be called before Manager.Recreate.
func (r *Renderer) DestroyFramebuffers() {
	for _, fb := range r.fb {
		fb.Destroy()
	}
	r.fb = nil
}

// Render records the commands that draw the quad into the
// chain image identified by img, using the resources of
// the given frame slot, and submits them.
// The submission waits for the semaphores in wait at the
// stages in waitStages, then signals the semaphores in
// signal and fence.
// The slot's previous submission must have completed.
func (r *Renderer) Render(slot, img int, fence driver.Fence, signal, wait []driver.Semaphore, waitStages []driver.Sync) error {
	if len(wait) != len(waitStages) || len(signal) == 0 {
		return errSyncSet
	}
	if slot < 0 || slot >= len(r.cb) {
		return newRendErr("frame slot out of range")
	}
	if img < 0 || img >= len(r.fb) {
		return newRendErr("image index out of range")
	}
	cb := r.cb[slot]
	if err := cb.Reset(); err != nil {
		return errors.Wrap(err, "renderer: resetting command buffer")
	}
	if err := cb.Begin(); err != nil {
		return errors.Wrap(err, "renderer: beginning command buffer")
	}
	ext := r.mgr.Extent()
	cb.BeginPass(r.pass, r.fb[img], ext, r.clear)
	cb.SetPipeline(r.pl)
	if err := r.updateTransform(slot, ext); err != nil {
		cb.EndPass()
		cb.End()
		return err
	}
	cb.SetDescHeap(r.pl, r.heap, slot)
	cb.SetVertexBuf(r.vbuf, 0)
	cb.SetIndexBuf(driver.Index16, r.ibuf, 0)
	cb.SetViewport(driver.Viewport{
		Width:  float32(ext.Width),
		Height: float32(ext.Height),
		Zfar:   1,
	})
	cb.SetScissor(driver.Scissor{Width: ext.Width, Height: ext.Height})
	cb.DrawIndexed(len(quadIndices), 1, 0, 0, 0)
	cb.EndPass()
	if err := cb.End(); err != nil {
		return errors.Wrap(err, "renderer: ending command buffer")
	}
	return r.gpu.Submit(cb, &driver.SubmitSync{
		Wait:     wait,
		WaitSync: waitStages,
		Signal:   signal,
		Fence:    fence,
	})
}

// updateTransform writes the slot's transform data.
// The quad rotates about the z axis at 45 degrees per
// second.
func (r *Renderer) updateTransform(slot int, ext driver.Extent) error {
	elapsed := float32(time.Since(r.start).Seconds())
	model := mgl32.HomogRotate3D(elapsed*mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1})
	view := mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})
	aspect := float32(ext.Width) / float32(max(ext.Height, 1))
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 10)
	// Clip space y points down.
	proj[5] *= -1
	r.xform.SetModel(&model)
	r.xform.SetView(&view)
	r.xform.SetProj(&proj)
	return r.gpu.WriteBuffer(r.ubuf[slot], 0, r.xform.Bytes())
}

// Slots returns the number of frame slots.
func (r *Renderer) Slots() int { return len(r.cb) }

// Destroy destroys the Renderer.
// The device must be idle.
func (r *Renderer) Destroy() {
	r.DestroyFramebuffers()
	if r.heap != nil {
		r.heap.Destroy()
		r.heap = nil
	}
	if r.splr != nil {
		r.splr.Destroy()
		r.splr = nil
	}
	if r.tex != nil {
		r.tex.Destroy()
		r.tex = nil
	}
	for _, buf := range r.ubuf {
		buf.Destroy()
	}
	r.ubuf = nil
	for _, buf := range [2]driver.Buffer{r.ibuf, r.vbuf} {
		if buf != nil {
			buf.Destroy()
		}
	}
	r.ibuf = nil
	r.vbuf = nil
	for _, cb := range r.cb {
		cb.Destroy()
	}
	r.cb = nil
	if r.pl != nil {
		r.pl.Destroy()
		r.pl = nil
	}
	for i, code := range r.code {
		if code != nil {
			code.Destroy()
			r.code[i] = nil
		}
	}
	if r.pass != nil {
		r.pass.Destroy()
		r.pass = nil
	}
}
