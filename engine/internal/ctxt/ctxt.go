// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package ctxt provides the GPU driver used in the engine.
package ctxt

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
)

var (
	drv    driver.Driver
	gpu    driver.GPU
	limits driver.Limits
)

var errNoDriver = errors.New("ctxt: driver not found")

// loadDriver attempts to load any driver whose name
// contains the name string. It is case insensitive.
// If name is the empty string, then all registered
// drivers are considered.
// It assumes that the drv and gpu vars hold invalid
// values and replaces both on success.
// The limits var is queried from the new gpu.
func loadDriver(name string, cfg driver.Config) error {
	drivers := driver.Drivers()
	err := errNoDriver
	name = strings.ToLower(name)
	for i := range drivers {
		if !strings.Contains(strings.ToLower(drivers[i].Name()), name) {
			continue
		}
		var u driver.GPU
		if u, err = drivers[i].Open(cfg); err != nil {
			continue
		}
		drv = drivers[i]
		gpu = u
		limits = gpu.Limits()
		return nil
	}
	return err
}

// Load loads a driver whose name contains name, falling
// back to any registered driver.
// It fails if a driver is already loaded.
// The error from the last driver tried is returned if
// none could be opened.
func Load(name string, cfg driver.Config) error {
	if gpu != nil {
		return errors.New("ctxt: driver already loaded")
	}
	err := loadDriver(name, cfg)
	if err != nil && name != "" && !errors.Is(err, errNoDriver) {
		return err
	}
	if err != nil {
		// Try all drivers.
		err = loadDriver("", cfg)
	}
	return err
}

// Unload closes the loaded driver, if any.
// Everything created from GPU() must have been
// destroyed already.
func Unload() {
	if drv != nil {
		drv.Close()
	}
	drv = nil
	gpu = nil
	limits = driver.Limits{}
}

// Driver returns the driver.Driver.
func Driver() driver.Driver { return drv }

// GPU returns the driver.GPU.
func GPU() driver.GPU { return gpu }

// Limits returns GPU().Limits().
// This value is retrieved only once. It must not be
// changed by the caller.
func Limits() *driver.Limits { return &limits }
