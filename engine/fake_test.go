// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gviegas/vkframe/driver"
)

// fakeGPU is a driver.GPU that executes nothing.
// Submissions signal their fence after a delay, chains
// return scripted statuses and every misuse that a real
// driver would not tolerate is recorded as a violation.
type fakeGPU struct {
	mu    sync.Mutex
	sf    *fakeObj
	spt   driver.SurfaceSupport
	fams  driver.QueueFamilies
	lim   driver.Limits
	delay time.Duration

	acquireScript []driver.Status
	presentScript []driver.Status
	failChain     bool

	infos      []driver.ChainInfo
	calls      []string
	live       map[string]int
	created    map[string]int
	inflight   []*fakeFence
	pending    int
	maxPending int
	submits    []driver.SubmitSync
	presents   []fakePresent
	violations []string
}

type fakePresent struct {
	index int
	wait  []driver.Semaphore
}

func newFakeGPU() *fakeGPU {
	u := &fakeGPU{
		spt: driver.SurfaceSupport{
			Caps: driver.SurfaceCaps{
				MinImages:     2,
				MaxImages:     3,
				CurrentExtent: driver.Extent{Width: 800, Height: 600},
				MinExtent:     driver.Extent{Width: 1, Height: 1},
				MaxExtent:     driver.Extent{Width: 4096, Height: 4096},
			},
			Formats: []driver.SurfaceFormat{
				{Format: driver.FormatBGRA8Unorm, ColorSpace: driver.ColorSpaceSRGBNonlinear},
				{Format: driver.FormatBGRA8sRGB, ColorSpace: driver.ColorSpaceSRGBNonlinear},
			},
			Modes: []driver.PresentMode{driver.PresentFIFO, driver.PresentMailbox},
		},
		lim:     driver.Limits{MaxAniso: 16, MaxImage2D: 4096},
		live:    make(map[string]int),
		created: make(map[string]int),
	}
	u.sf = &fakeObj{u: u, kind: "surface"}
	return u
}

func (u *fakeGPU) violate(format string, args ...interface{}) {
	u.violations = append(u.violations, fmt.Sprintf(format, args...))
}

// newObj must be called with u.mu held.
func (u *fakeGPU) newObj(kind string) fakeObj {
	u.live[kind]++
	u.created[kind]++
	u.calls = append(u.calls, "new "+kind)
	return fakeObj{u: u, kind: kind}
}

func (u *fakeGPU) setSupport(f func(*driver.SurfaceSupport)) {
	u.mu.Lock()
	f(&u.spt)
	u.mu.Unlock()
}

// checkClean checks that u recorded no violations and that
// every object it created was destroyed.
func (u *fakeGPU) checkClean(t *testing.T) {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range u.violations {
		t.Errorf("fakeGPU: violation: %s", v)
	}
	for k, n := range u.live {
		if n != 0 {
			t.Errorf("fakeGPU: live %s objects\nhave %d\nwant 0", k, n)
		}
	}
}

func (u *fakeGPU) checkNoViolation(t *testing.T) {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range u.violations {
		t.Errorf("fakeGPU: violation: %s", v)
	}
}

// count returns the number of live objects of a kind.
func (u *fakeGPU) count(kind string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.live[kind]
}

func (u *fakeGPU) Driver() driver.Driver { return nil }
func (u *fakeGPU) DeviceName() string    { return "fake" }

func (u *fakeGPU) Devices() []driver.DeviceInfo {
	return []driver.DeviceInfo{{Name: "fake", Suitable: true, Selected: true}}
}

func (u *fakeGPU) Families() driver.QueueFamilies { return u.fams }
func (u *fakeGPU) Surface() driver.Surface        { return u.sf }
func (u *fakeGPU) Limits() driver.Limits          { return u.lim }

func (u *fakeGPU) SurfaceSupport(driver.Surface) (driver.SurfaceSupport, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	spt := u.spt
	spt.Formats = append([]driver.SurfaceFormat(nil), u.spt.Formats...)
	spt.Modes = append([]driver.PresentMode(nil), u.spt.Modes...)
	return spt, nil
}

func (u *fakeGPU) NewChain(_ driver.Surface, info *driver.ChainInfo) (driver.Chain, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.infos = append(u.infos, *info)
	if info.Extent.IsZero() {
		u.violate("NewChain: zero extent %v", info.Extent)
		return nil, errors.New("fake: zero extent")
	}
	if u.failChain {
		return nil, driver.ErrSurfaceLost
	}
	if old, ok := info.Old.(*fakeChain); ok && old.destroyed {
		u.violate("NewChain: old chain already destroyed")
	}
	c := &fakeChain{fakeObj: u.newObj("chain"), info: *info}
	c.images = make([]driver.Image, info.Images)
	for i := range c.images {
		c.images[i] = &fakeImage{c, i}
	}
	return c, nil
}

func (u *fakeGPU) NewView(img driver.Image, _ driver.Format) (driver.ImageView, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if fi, ok := img.(*fakeImage); !ok || fi.c.destroyed {
		u.violate("NewView: invalid image")
	}
	o := u.newObj("view")
	return &o, nil
}

func (u *fakeGPU) NewFence(signaled bool) (driver.Fence, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	f := &fakeFence{fakeObj: u.newObj("fence"), signaled: signaled}
	f.cond = sync.NewCond(&f.mu)
	return f, nil
}

func (u *fakeGPU) NewSemaphore() (driver.Semaphore, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	o := u.newObj("semaphore")
	return &o, nil
}

func (u *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return &fakeCmd{fakeObj: u.newObj("cmd")}, nil
}

func (u *fakeGPU) Submit(cb driver.CmdBuffer, s *driver.SubmitSync) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := cb.(*fakeCmd)
	if c.destroyed {
		u.violate("Submit: destroyed command buffer")
	}
	if n := len(c.log); n == 0 || c.log[n-1] != "End" {
		u.violate("Submit: command buffer not ended")
	}
	if len(s.Wait) != len(s.WaitSync) {
		u.violate("Submit: %d wait semaphores, %d wait stages", len(s.Wait), len(s.WaitSync))
	}
	u.calls = append(u.calls, "Submit")
	u.submits = append(u.submits, *s)
	f, _ := s.Fence.(*fakeFence)
	if f == nil {
		return nil
	}
	f.mu.Lock()
	if f.signaled || f.pending {
		u.violate("Submit: fence not reset (signaled %t, pending %t)", f.signaled, f.pending)
	}
	f.pending = true
	f.mu.Unlock()
	c.fence = f
	u.inflight = append(u.inflight, f)
	u.pending++
	if u.pending > u.maxPending {
		u.maxPending = u.pending
	}
	time.AfterFunc(u.delay, f.signal)
	return nil
}

func (u *fakeGPU) WaitIdle() error {
	u.mu.Lock()
	fs := u.inflight
	u.inflight = nil
	u.calls = append(u.calls, "WaitIdle")
	u.mu.Unlock()
	for _, f := range fs {
		f.mu.Lock()
		for f.pending {
			f.cond.Wait()
		}
		f.mu.Unlock()
	}
	return nil
}

func (u *fakeGPU) NewRenderPass(driver.Format) (driver.RenderPass, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	o := u.newObj("pass")
	return &o, nil
}

func (u *fakeGPU) NewFramebuf(_ driver.RenderPass, iv []driver.ImageView, size driver.Extent) (driver.Framebuf, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if size.IsZero() || len(iv) != 1 {
		u.violate("NewFramebuf: %d views, size %v", len(iv), size)
	}
	if o, ok := iv[0].(*fakeObj); !ok || o.destroyed {
		u.violate("NewFramebuf: invalid view")
	}
	o := u.newObj("framebuf")
	return &o, nil
}

func (u *fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(data) == 0 {
		return nil, errors.New("fake: empty shader")
	}
	o := u.newObj("shader")
	return &o, nil
}

func (u *fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return &fakeHeap{fakeObj: u.newObj("heap"), ds: ds}, nil
}

func (u *fakeGPU) NewPipeline(state *driver.GraphState) (driver.Pipeline, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if state.VertFunc.Code == nil || state.FragFunc.Code == nil || state.Pass == nil || state.Desc == nil {
		u.violate("NewPipeline: incomplete state")
	}
	o := u.newObj("pipeline")
	return &o, nil
}

func (u *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if size <= 0 {
		return nil, errors.New("fake: invalid buffer size")
	}
	return &fakeBuffer{fakeObj: u.newObj("buffer"), data: make([]byte, size), visible: visible, usg: usg}, nil
}

func (u *fakeGPU) WriteBuffer(buf driver.Buffer, off int64, data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	b := buf.(*fakeBuffer)
	if off < 0 || off+int64(len(data)) > int64(len(b.data)) {
		return errors.New("fake: write out of bounds")
	}
	copy(b.data[off:], data)
	b.writes++
	return nil
}

func (u *fakeGPU) NewTexture(img *image.RGBA) (driver.Texture, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b := img.Bounds()
	return &fakeTexture{fakeObj: u.newObj("texture"), size: driver.Extent{Width: b.Dx(), Height: b.Dy()}}, nil
}

func (u *fakeGPU) NewSampler(*driver.Sampling) (driver.Sampler, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	o := u.newObj("sampler")
	return &o, nil
}

// fakeObj is the base of every fake object.
type fakeObj struct {
	u         *fakeGPU
	kind      string
	destroyed bool
}

func (o *fakeObj) Destroy() {
	u := o.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if o.destroyed {
		u.violate("%s destroyed twice", o.kind)
		return
	}
	o.destroyed = true
	u.live[o.kind]--
	u.calls = append(u.calls, "destroy "+o.kind)
}

type fakeImage struct {
	c *fakeChain
	i int
}

type fakeChain struct {
	fakeObj
	info   driver.ChainInfo
	images []driver.Image
	next   int
}

func (c *fakeChain) Images() []driver.Image { return c.images }

func (c *fakeChain) Acquire(sem driver.Semaphore) (int, driver.Status, error) {
	u := c.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if c.destroyed {
		u.violate("Acquire: destroyed chain")
	}
	if s, ok := sem.(*fakeObj); !ok || s.destroyed {
		u.violate("Acquire: invalid semaphore")
	}
	u.calls = append(u.calls, "Acquire")
	st := driver.StatusOK
	if len(u.acquireScript) > 0 {
		st = u.acquireScript[0]
		u.acquireScript = u.acquireScript[1:]
	}
	if st == driver.StatusOutOfDate {
		return -1, st, nil
	}
	idx := c.next
	c.next = (c.next + 1) % len(c.images)
	return idx, st, nil
}

func (c *fakeChain) Present(index int, wait []driver.Semaphore) (driver.Status, error) {
	u := c.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if c.destroyed {
		u.violate("Present: destroyed chain")
	}
	if index < 0 || index >= len(c.images) {
		u.violate("Present: index %d out of range", index)
	}
	u.calls = append(u.calls, "Present")
	u.presents = append(u.presents, fakePresent{index, wait})
	st := driver.StatusOK
	if len(u.presentScript) > 0 {
		st = u.presentScript[0]
		u.presentScript = u.presentScript[1:]
	}
	return st, nil
}

type fakeFence struct {
	fakeObj
	mu       sync.Mutex
	cond     *sync.Cond
	signaled bool
	pending  bool
}

var errNeverSignaled = errors.New("fake: wait on fence that is never signaled")

func (f *fakeFence) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signaled && !f.pending {
		f.u.mu.Lock()
		f.u.violate("Fence.Wait: fence is unsignaled and has no pending submission")
		f.u.mu.Unlock()
		return errNeverSignaled
	}
	for !f.signaled {
		f.cond.Wait()
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		f.u.mu.Lock()
		f.u.violate("Fence.Reset: pending submission")
		f.u.mu.Unlock()
	}
	f.signaled = false
	return nil
}

func (f *fakeFence) isPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeFence) signal() {
	f.u.mu.Lock()
	f.u.pending--
	f.u.mu.Unlock()
	f.mu.Lock()
	f.signaled = true
	f.pending = false
	f.cond.Broadcast()
	f.mu.Unlock()
}

type fakeCmd struct {
	fakeObj
	log   []string
	fence *fakeFence
}

func (c *fakeCmd) record(s string) { c.log = append(c.log, s) }

func (c *fakeCmd) Reset() error {
	if c.fence != nil && c.fence.isPending() {
		c.u.mu.Lock()
		c.u.violate("CmdBuffer.Reset: pending submission")
		c.u.mu.Unlock()
	}
	c.log = c.log[:0]
	c.record("Reset")
	return nil
}

func (c *fakeCmd) Begin() error { c.record("Begin"); return nil }
func (c *fakeCmd) End() error   { c.record("End"); return nil }

func (c *fakeCmd) BeginPass(driver.RenderPass, driver.Framebuf, driver.Extent, [4]float32) {
	c.record("BeginPass")
}

func (c *fakeCmd) EndPass()                                          { c.record("EndPass") }
func (c *fakeCmd) SetPipeline(driver.Pipeline)                       { c.record("SetPipeline") }
func (c *fakeCmd) SetViewport(driver.Viewport)                       { c.record("SetViewport") }
func (c *fakeCmd) SetScissor(driver.Scissor)                         { c.record("SetScissor") }
func (c *fakeCmd) SetVertexBuf(driver.Buffer, int64)                 { c.record("SetVertexBuf") }
func (c *fakeCmd) SetIndexBuf(driver.IndexFmt, driver.Buffer, int64) { c.record("SetIndexBuf") }

func (c *fakeCmd) SetDescHeap(_ driver.Pipeline, dh driver.DescHeap, cpy int) {
	if h := dh.(*fakeHeap); cpy < 0 || cpy >= h.n {
		c.u.mu.Lock()
		c.u.violate("SetDescHeap: copy %d out of range", cpy)
		c.u.mu.Unlock()
	}
	c.record("SetDescHeap")
}

func (c *fakeCmd) DrawIndexed(idxCount, _, _, _, _ int) {
	c.record(fmt.Sprintf("DrawIndexed(%d)", idxCount))
}

type fakeHeap struct {
	fakeObj
	ds []driver.Descriptor
	n  int
}

func (h *fakeHeap) New(n int) error                                 { h.n = n; return nil }
func (h *fakeHeap) SetBuffer(int, int, driver.Buffer, int64, int64) {}
func (h *fakeHeap) SetTexture(int, int, driver.Texture)             {}
func (h *fakeHeap) SetSampler(int, int, driver.Sampler)             {}
func (h *fakeHeap) Count() int                                      { return h.n }

type fakeBuffer struct {
	fakeObj
	data    []byte
	visible bool
	usg     driver.Usage
	writes  int
}

func (b *fakeBuffer) Visible() bool { return b.visible }
func (b *fakeBuffer) Cap() int64    { return int64(len(b.data)) }

func (b *fakeBuffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

type fakeTexture struct {
	fakeObj
	size driver.Extent
}

func (t *fakeTexture) Size() driver.Extent { return t.size }

// fakeWindow is a wsi.Window that is never mapped.
type fakeWindow struct {
	mu      sync.Mutex
	w, h    int
	zero    int
	resized bool
	// ShouldClose reports true after this many calls.
	// Negative means never.
	closeAfter int
	fbCalls    int
	titles     []string
}

func newFakeWindow(w, h int) *fakeWindow { return &fakeWindow{w: w, h: h, closeAfter: -1} }

func (w *fakeWindow) Close()                       {}
func (w *fakeWindow) InstanceExtensions() []string { return nil }

func (w *fakeWindow) SetTitle(title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.titles = append(w.titles, title)
	return nil
}

func (w *fakeWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := len(w.titles); n > 0 {
		return w.titles[n-1]
	}
	return "fake"
}

func (w *fakeWindow) CreateSurface(interface{}) (uintptr, error) {
	return 0, errors.New("fake: no surface")
}

func (w *fakeWindow) Resize(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.w, w.h = width, height
	w.resized = true
	return nil
}

// FramebufferSize reports 0x0 for the first w.zero calls.
func (w *fakeWindow) FramebufferSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fbCalls++
	if w.zero > 0 {
		w.zero--
		return 0, 0
	}
	return w.w, w.h
}

func (w *fakeWindow) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closeAfter < 0 {
		return false
	}
	if w.closeAfter == 0 {
		return true
	}
	w.closeAfter--
	return false
}

func (w *fakeWindow) Resized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resized
}

func (w *fakeWindow) ResetResized() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resized = false
}

// testConfig writes SPIR-V-looking shader files into a
// temporary directory and returns a configuration that
// uses them.
func testConfig(t *testing.T, n int) *Config {
	t.Helper()
	dir := t.TempDir()
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	for _, name := range [...]string{"quad.vert.spv", "quad.frag.spv"} {
		if err := os.WriteFile(filepath.Join(dir, name), code, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := DefaultConfig()
	cfg.FramesInFlight = n
	cfg.ShaderDir = dir
	cfg.Shaders = []string{"quad.vert.spv", "quad.frag.spv"}
	return &cfg
}
