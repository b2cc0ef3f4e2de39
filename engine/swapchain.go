// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/wsi"
)

// Manager manages the chain of presentable images of
// a window surface.
// It owns the chain and one view per chain image.
type Manager struct {
	gpu     driver.GPU
	sf      driver.Surface
	win     wsi.Window
	mailbox bool

	chain  driver.Chain
	images []driver.Image
	views  []driver.ImageView
	format driver.SurfaceFormat
	mode   driver.PresentMode
	extent driver.Extent

	// Only valid between a successful acquire and the
	// matching present.
	index    int
	hasIndex bool
}

// NewManager creates a new Manager that presents to sf.
// win is queried for its drawable size and resize flag.
// If preferMailbox is true, mailbox presentation is used
// when supported.
func NewManager(gpu driver.GPU, sf driver.Surface, win wsi.Window, preferMailbox bool) (*Manager, error) {
	if gpu == nil || sf == nil || win == nil {
		return nil, errors.New("engine: nil argument in call to NewManager")
	}
	m := &Manager{
		gpu:     gpu,
		sf:      sf,
		win:     win,
		mailbox: preferMailbox,
	}
	spt, ok, err := m.support()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("engine: window closed before chain creation")
	}
	if err := m.create(&spt, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// support queries the surface support.
// While the extent that would be chosen is empty (as is
// the case for minimized windows), it blocks waiting
// for window events. ok is false if the window should
// close before a usable extent is available.
func (m *Manager) support() (spt driver.SurfaceSupport, ok bool, err error) {
	for {
		if spt, err = m.gpu.SurfaceSupport(m.sf); err != nil {
			return spt, false, errors.Wrap(err, "engine: querying surface support")
		}
		w, h := m.win.FramebufferSize()
		if w > 0 && h > 0 && !chooseExtent(&spt.Caps, w, h).IsZero() {
			return spt, true, nil
		}
		if m.win.ShouldClose() {
			return spt, false, nil
		}
		wsi.Wait()
	}
}

// create creates the chain and its views from spt.
// old, if not nil, is passed as the chain to be
// replaced. It is not destroyed.
// On failure, m holds no chain and no views.
func (m *Manager) create(spt *driver.SurfaceSupport, old driver.Chain) error {
	if len(spt.Formats) == 0 || len(spt.Modes) == 0 {
		return driver.ErrNoSurfaceFormat
	}
	w, h := m.win.FramebufferSize()
	format := chooseFormat(spt.Formats)
	mode := choosePresentMode(spt.Modes, m.mailbox)
	extent := chooseExtent(&spt.Caps, w, h)
	sharing, fams := chooseSharing(m.gpu.Families())
	info := driver.ChainInfo{
		Images:      chooseImageCount(&spt.Caps),
		Format:      format,
		PresentMode: mode,
		Extent:      extent,
		Sharing:     sharing,
		Families:    fams,
		Transform:   spt.Caps.CurrentTransform,
		Old:         old,
	}
	chain, err := m.gpu.NewChain(m.sf, &info)
	if err != nil {
		return errors.Wrap(err, "engine: creating chain")
	}
	images := chain.Images()
	views := make([]driver.ImageView, 0, len(images))
	for _, img := range images {
		iv, err := m.gpu.NewView(img, format.Format)
		if err != nil {
			for _, iv := range views {
				iv.Destroy()
			}
			chain.Destroy()
			return errors.Wrap(err, "engine: creating chain view")
		}
		views = append(views, iv)
	}
	m.chain = chain
	m.images = images
	m.views = views
	m.format = format
	m.mode = mode
	m.extent = extent
	m.hasIndex = false
	logger.Debugf("chain: %dx%d, %d images, format %d, %v", extent.Width, extent.Height, len(images), format.Format, mode)
	return nil
}

// AcquireNext acquires the next presentable image.
// sem is signaled when the image can be written to.
// If the status is driver.StatusOutOfDate, the returned
// index is -1 and m must be recreated before presenting.
func (m *Manager) AcquireNext(sem driver.Semaphore) (int, driver.Status, error) {
	if m.chain == nil {
		return -1, driver.StatusOutOfDate, nil
	}
	idx, st, err := m.chain.Acquire(sem)
	if err != nil {
		m.hasIndex = false
		return -1, st, errors.Wrap(err, "engine: acquiring image")
	}
	if st == driver.StatusOutOfDate {
		m.hasIndex = false
		return -1, st, nil
	}
	m.index, m.hasIndex = idx, true
	return idx, st, nil
}

// Present presents the image identified by idx after
// the semaphores in wait are signaled.
// A pending resize of the window is reported as
// driver.StatusSuboptimal if the presentation itself
// succeeded with driver.StatusOK.
func (m *Manager) Present(idx int, wait []driver.Semaphore) (driver.Status, error) {
	if m.chain == nil {
		return driver.StatusOutOfDate, nil
	}
	st, err := m.chain.Present(idx, wait)
	m.hasIndex = false
	if err != nil {
		return st, errors.Wrap(err, "engine: presenting image")
	}
	if st == driver.StatusOK && m.win.Resized() {
		st = driver.StatusSuboptimal
	}
	return st, nil
}

// Recreate replaces the chain with one that matches the
// current state of the surface.
// It waits for the device to become idle. If the window
// has no drawable area, it blocks until it has one.
// The window's resize flag is not reset.
func (m *Manager) Recreate() error {
	if err := m.gpu.WaitIdle(); err != nil {
		return errors.Wrap(err, "engine: waiting device idle")
	}
	spt, ok, err := m.support()
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("chain recreation skipped (window closing)")
		return nil
	}
	for _, iv := range m.views {
		iv.Destroy()
	}
	m.views = nil
	m.images = nil
	old := m.chain
	m.chain = nil
	err = m.create(&spt, old)
	if old != nil {
		old.Destroy()
	}
	return err
}

// Destroy destroys the views and the chain.
func (m *Manager) Destroy() {
	for _, iv := range m.views {
		iv.Destroy()
	}
	if m.chain != nil {
		m.chain.Destroy()
	}
	m.chain = nil
	m.images = nil
	m.views = nil
	m.hasIndex = false
}

// Format returns the format of the chain images.
func (m *Manager) Format() driver.Format { return m.format.Format }

// ColorSpace returns the color space of the chain images.
func (m *Manager) ColorSpace() driver.ColorSpace { return m.format.ColorSpace }

// PresentMode returns the present mode of the chain.
func (m *Manager) PresentMode() driver.PresentMode { return m.mode }

// Extent returns the size of the chain images.
func (m *Manager) Extent() driver.Extent { return m.extent }

// Images returns the chain images.
func (m *Manager) Images() []driver.Image { return m.images }

// Views returns the views of the chain images, in
// image order.
func (m *Manager) Views() []driver.ImageView { return m.views }

// Index returns the index of the acquired image.
// ok is false if no image is currently acquired.
func (m *Manager) Index() (idx int, ok bool) {
	if !m.hasIndex {
		return -1, false
	}
	return m.index, true
}

// chooseFormat chooses the sRGB BGRA format if supported,
// and the first format otherwise.
// formats must not be empty.
func chooseFormat(formats []driver.SurfaceFormat) driver.SurfaceFormat {
	want := driver.SurfaceFormat{
		Format:     driver.FormatBGRA8sRGB,
		ColorSpace: driver.ColorSpaceSRGBNonlinear,
	}
	for _, f := range formats {
		if f == want {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode chooses mailbox if mailbox is true and
// the mode is supported. Otherwise, it chooses FIFO, which
// is always supported.
func choosePresentMode(modes []driver.PresentMode, mailbox bool) driver.PresentMode {
	if mailbox {
		for _, m := range modes {
			if m == driver.PresentMailbox {
				return m
			}
		}
	}
	return driver.PresentFIFO
}

// chooseExtent chooses the current extent of the surface,
// unless the surface lets the chain decide. In that case,
// the drawable size w x h is clamped to the supported
// range.
func chooseExtent(caps *driver.SurfaceCaps, w, h int) driver.Extent {
	cur := caps.CurrentExtent
	if cur.Width != driver.SpecialExtent {
		return cur
	}
	return driver.Extent{
		Width:  clamp(w, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(h, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// chooseImageCount chooses one image more than the minimum,
// as long as it does not exceed the maximum.
func chooseImageCount(caps *driver.SurfaceCaps) int {
	n := caps.MinImages + 1
	if caps.MaxImages != 0 && n > caps.MaxImages {
		n = caps.MaxImages
	}
	return n
}

// chooseSharing chooses concurrent sharing between the
// graphics and present families if they differ.
func chooseSharing(fams driver.QueueFamilies) (driver.Sharing, []int) {
	if fams.Graphics != fams.Present {
		return driver.SharingConcurrent, []int{fams.Graphics, fams.Present}
	}
	return driver.SharingExclusive, nil
}
