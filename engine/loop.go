// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/wsi"
)

// frameSlot holds the synchronization of one frame in
// flight. The slot's command buffer is owned by the
// Renderer, at the same index.
type frameSlot struct {
	// Signaled when the slot's last submission completes.
	// Created signaled.
	fence driver.Fence
	// Signaled when the acquired image can be written to.
	acquire driver.Semaphore
}

// Stats are frame statistics.
type Stats struct {
	// Frames is the number of frames presented.
	Frames int
	// Recreations is the number of times the chain was
	// recreated.
	Recreations int
	// Elapsed is the total time spent in Frame calls,
	// including ones that did not present.
	Elapsed time.Duration
}

// Average returns the average frame time.
func (s Stats) Average() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Frames)
}

// Loop drives the acquire/render/present cycle.
type Loop struct {
	gpu  driver.GPU
	win  wsi.Window
	mgr  *Manager
	rend *Renderer

	slots []frameSlot
	slot  int
	// One semaphore per chain image, signaled when
	// rendering to the image completes.
	renderDone []driver.Semaphore

	stats Stats
}

// NewLoop creates a new Loop with n frame slots.
// n must match the number of slots of rend.
func NewLoop(gpu driver.GPU, win wsi.Window, mgr *Manager, rend *Renderer, n int) (l *Loop, err error) {
	if gpu == nil || win == nil || mgr == nil || rend == nil {
		return nil, errors.New("engine: nil argument in call to NewLoop")
	}
	if n < 1 || n != rend.Slots() {
		return nil, errors.Errorf("engine: NewLoop: %d frame slots (renderer has %d)", n, rend.Slots())
	}
	l = &Loop{
		gpu:   gpu,
		win:   win,
		mgr:   mgr,
		rend:  rend,
		slots: make([]frameSlot, 0, n),
	}
	defer func() {
		if err != nil {
			l.Destroy()
			l = nil
		}
	}()
	for i := 0; i < n; i++ {
		var s frameSlot
		if s.fence, err = gpu.NewFence(true); err != nil {
			return nil, errors.Wrap(err, "engine: frame fence")
		}
		if s.acquire, err = gpu.NewSemaphore(); err != nil {
			s.fence.Destroy()
			return nil, errors.Wrap(err, "engine: acquire semaphore")
		}
		l.slots = append(l.slots, s)
	}
	if err = l.resizeRenderDone(len(mgr.Images())); err != nil {
		return
	}
	return l, nil
}

// resizeRenderDone makes renderDone hold n semaphores.
// The device must be idle if n differs from the current
// length.
func (l *Loop) resizeRenderDone(n int) error {
	if n == len(l.renderDone) {
		return nil
	}
	for _, s := range l.renderDone {
		s.Destroy()
	}
	l.renderDone = make([]driver.Semaphore, 0, n)
	for i := 0; i < n; i++ {
		s, err := l.gpu.NewSemaphore()
		if err != nil {
			return errors.Wrap(err, "engine: render semaphore")
		}
		l.renderDone = append(l.renderDone, s)
	}
	return nil
}

// Frame runs one iteration of the loop.
// It blocks until the current slot's previous frame has
// completed. The chain is recreated as needed, in which
// case nothing may be presented.
func (l *Loop) Frame() error {
	start := time.Now()
	defer func() { l.stats.Elapsed += time.Since(start) }()

	s := &l.slots[l.slot]
	if err := s.fence.Wait(); err != nil {
		return errors.Wrap(err, "engine: waiting frame fence")
	}

	img, ast, err := l.mgr.AcquireNext(s.acquire)
	if err != nil {
		return err
	}
	if ast == driver.StatusOutOfDate {
		// The fence is still signaled, so the slot can
		// be reused.
		if err = l.recreate(); err != nil {
			return err
		}
		l.advance()
		return nil
	}

	if err = s.fence.Reset(); err != nil {
		return errors.Wrap(err, "engine: resetting frame fence")
	}
	done := l.renderDone[img]
	err = l.rend.Render(l.slot, img, s.fence,
		[]driver.Semaphore{done},
		[]driver.Semaphore{s.acquire},
		[]driver.Sync{driver.SColorOutput})
	if err != nil {
		return err
	}

	pst, err := l.mgr.Present(img, []driver.Semaphore{done})
	if err != nil {
		return err
	}
	l.stats.Frames++
	if ast == driver.StatusSuboptimal || pst != driver.StatusOK {
		if err = l.recreate(); err != nil {
			return err
		}
	}
	l.advance()
	return nil
}

func (l *Loop) advance() { l.slot = (l.slot + 1) % len(l.slots) }

// recreate recreates the chain and everything that
// depends on it.
func (l *Loop) recreate() error {
	if err := l.gpu.WaitIdle(); err != nil {
		return errors.Wrap(err, "engine: waiting device idle")
	}
	l.rend.DestroyFramebuffers()
	if err := l.mgr.Recreate(); err != nil {
		return err
	}
	if err := l.rend.CreateFramebuffers(); err != nil {
		return err
	}
	if err := l.resizeRenderDone(len(l.mgr.Images())); err != nil {
		return err
	}
	l.win.ResetResized()
	l.stats.Recreations++
	ext := l.mgr.Extent()
	logger.Infof("chain recreated: %dx%d, %d images", ext.Width, ext.Height, len(l.mgr.Images()))
	return nil
}

// Run calls Frame and dispatches window events until
// the window should close or ctx is done.
// It waits for the device to become idle before
// returning.
func (l *Loop) Run(ctx context.Context) error {
	var err error
	title := l.win.Title()
	last, frames := time.Now(), l.stats.Frames
	for !l.win.ShouldClose() {
		if ctx.Err() != nil {
			logger.Notice("interrupted")
			break
		}
		if err = l.Frame(); err != nil {
			break
		}
		if d := time.Since(last); d >= TitlePeriod {
			l.setTitle(title, l.stats.Frames-frames, d)
			last, frames = time.Now(), l.stats.Frames
		}
		wsi.Dispatch()
	}
	if l.win.Title() != title {
		l.setTitle(title, 0, 0)
	}
	if e := l.gpu.WaitIdle(); err == nil && e != nil {
		err = errors.Wrap(e, "engine: waiting device idle")
	}
	st := l.stats
	logger.Infof("%d frames, %d recreations, %v per frame", st.Frames, st.Recreations, st.Average())
	return err
}

// TitlePeriod is how often Run shows the frame rate in
// the window title.
var TitlePeriod = time.Second

// setTitle sets the window title to title followed by the
// rate of n frames in d. A zero d restores title.
func (l *Loop) setTitle(title string, n int, d time.Duration) {
	if d > 0 {
		title = fmt.Sprintf("%s (%.0f fps)", title, float64(n)/d.Seconds())
	}
	if err := l.win.SetTitle(title); err != nil {
		logger.Warningf("Loop.Run: %v", err)
	}
}

// Slot returns the index of the current frame slot.
func (l *Loop) Slot() int { return l.slot }

// Stats returns the frame statistics.
func (l *Loop) Stats() Stats { return l.stats }

// Destroy destroys the Loop's synchronization objects.
// It waits for the device to become idle.
// The Manager and Renderer are not destroyed.
func (l *Loop) Destroy() {
	if len(l.slots) == 0 && len(l.renderDone) == 0 {
		return
	}
	if err := l.gpu.WaitIdle(); err != nil {
		logger.Warningf("Loop.Destroy: %v", err)
	}
	for _, s := range l.renderDone {
		s.Destroy()
	}
	l.renderDone = nil
	for _, s := range l.slots {
		s.acquire.Destroy()
		s.fence.Destroy()
	}
	l.slots = nil
	l.slot = 0
}
