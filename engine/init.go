// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/engine/internal/ctxt"
	"github.com/gviegas/vkframe/wsi"
)

// Open loads the GPU driver, using win as the
// presentation target.
// Only one driver can be open at a time.
func Open(win wsi.Window, cfg *Config) (driver.GPU, error) {
	if win == nil {
		return nil, errors.New("engine: nil wsi.Window in call to Open")
	}
	err := ctxt.Load(ctxt.DefaultDriver, driver.Config{
		AppName:    cfg.Title,
		Validation: cfg.Validation,
		Window:     win,
	})
	if err != nil {
		return nil, errors.Wrap(err, "engine: opening driver")
	}
	gpu := ctxt.GPU()
	logger.Infof("driver %s opened (%s)", ctxt.Driver().Name(), gpu.DeviceName())
	return gpu, nil
}

// Close closes the driver loaded by Open.
func Close() { ctxt.Unload() }
