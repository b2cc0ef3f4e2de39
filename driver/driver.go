// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the set of interfaces through
// which the rendering core talks to a GPU.
// It is designed to keep the frame loop independent from
// the graphics API, so that the swapchain and frame
// synchronization logic can be exercised without a real
// device.
package driver

import (
	"errors"
	"sync"

	"github.com/gviegas/vkframe/internal/log"
	"github.com/gviegas/vkframe/wsi"
)

var logger = log.New("driver")

// Driver is the interface that provides methods for
// loading and unloading an underlying implementation.
type Driver interface {
	// Open initializes the driver.
	// The window in cfg is used to create the presentation
	// surface, which in turn constrains device selection.
	// If it succeeds, further calls with the same receiver
	// have no effect and must return the same GPU instance.
	// Callers should assume that Open is not safe for
	// parallel execution.
	Open(cfg Config) (GPU, error)

	// Name returns the name of the driver.
	// It must not cause the driver to be opened.
	Name() string

	// Close deinitializes the driver.
	// Closing a driver that is not open has no effect.
	// Callers should assume that Close is not safe for
	// parallel execution.
	Close()
}

// Config is the configuration given to Driver.Open.
type Config struct {
	// AppName identifies the application to the
	// underlying API.
	AppName string

	// Validation enables API validation and routes
	// validation messages to the log.
	// Open fails with ErrNoLayer if validation is
	// requested but not available.
	Validation bool

	// Window is the window whose surface will be
	// presented to. It must not be nil.
	Window wsi.Window
}

// ErrNotInstalled means that a platform-specific library
// required for the driver to work is not present in the
// system.
var ErrNotInstalled = errors.New("driver: missing required library")

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoExtension means that a required extension is not
// supported.
var ErrNoExtension = errors.New("driver: required extension not present")

// ErrNoLayer means that a required layer is not present.
var ErrNoLayer = errors.New("driver: required layer not present")

// ErrNoSurfaceFormat means that the surface reports no
// formats or no present modes.
var ErrNoSurfaceFormat = errors.New("driver: no supported surface format")

// ErrNoHostMemory means that host memory could not be
// allocated.
var ErrNoHostMemory = errors.New("driver: out of host memory")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrSurfaceLost means that the presentation surface is
// no longer usable.
var ErrSurfaceLost = errors.New("driver: surface lost")

// ErrFatal means that the driver is in an unrecoverable
// state. Upon encountering such an error, the application
// must destroy everything that it created using the
// driver's GPU and then call the Close method.
var ErrFatal = errors.New("driver: fatal error")

// Drivers returns the registered Drivers.
// Client code imports specific driver packages, and then
// call this function from init. As such, drivers that do
// not register themselves on init will not be considered
// for selection.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Register registers a Driver.
// Driver implementations are expected to call Register
// exactly once, from an init function.
// If a driver with the same name has already been
// registered, it will be replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			logger.Warningf("driver '%s' replaced", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
	logger.Debugf("driver '%s' registered", drv.Name())
}

// Variables used for driver registration.
var (
	mu      sync.Mutex
	drivers []Driver = make([]Driver, 0, 1)
)
