// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/vkframe/engine"
	"github.com/gviegas/vkframe/internal/config"
	"github.com/gviegas/vkframe/wsi"
)

var validationFlag = cli.BoolFlag{
	Name:  "validation",
	Usage: "enable the Vulkan validation layer",
}

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config",
		Usage: "Lua file to read settings from",
	},
	cli.IntFlag{
		Name:  "width",
		Value: engine.DefaultConfig().Width,
		Usage: "initial window width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: engine.DefaultConfig().Height,
		Usage: "initial window height",
	},
	cli.StringFlag{
		Name:  "title",
		Value: engine.DefaultConfig().Title,
		Usage: "window title",
	},
	cli.IntFlag{
		Name:  "frames",
		Value: engine.DefaultConfig().FramesInFlight,
		Usage: "number of frames in flight",
	},
	cli.StringFlag{
		Name:  "shader-dir",
		Value: engine.DefaultConfig().ShaderDir,
		Usage: "directory to load shaders from",
	},
	cli.StringFlag{
		Name:  "texture",
		Usage: "image file to texture the quad with",
	},
	validationFlag,
	cli.BoolFlag{
		Name:  "no-mailbox",
		Usage: "always use FIFO presentation",
	},
}

// Run renders frames until the window is closed or the
// process receives an interrupt.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if err = wsi.Init(); err != nil {
		return err
	}
	defer wsi.Terminate()

	var hints []wsi.Hint
	if !cfg.Resizable {
		hints = append(hints, wsi.HintFixedSize)
	}
	win, err := wsi.NewWindow(cfg.Width, cfg.Height, cfg.Title, hints...)
	if err != nil {
		return errors.Wrap(err, "creating window")
	}
	defer win.Close()

	gpu, err := engine.Open(win, &cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	mgr, err := engine.NewManager(gpu, gpu.Surface(), win, cfg.PreferMailbox)
	if err != nil {
		return err
	}
	defer mgr.Destroy()

	rend, err := engine.NewRenderer(gpu, mgr, &cfg)
	if err != nil {
		return err
	}
	defer rend.Destroy()

	loop, err := engine.NewLoop(gpu, win, mgr, rend, cfg.FramesInFlight)
	if err != nil {
		return err
	}
	defer loop.Destroy()

	logger.Noticef("rendering %dx%d, %d frame(s) in flight", mgr.Extent().Width, mgr.Extent().Height, cfg.FramesInFlight)

	events := new(windowEvents)
	wsi.SetWindowHandler(events)
	defer wsi.SetWindowHandler(nil)

	sig, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err = loop.Run(sig); err != nil {
		return err
	}
	st := loop.Stats()
	logger.Infof("%d window resize event(s), %d chain recreation(s)", events.resizes, st.Recreations)
	return nil
}

// loadConfig builds the engine configuration from the
// defaults, the --config file and explicitly set flags,
// in this order.
func loadConfig(ctx *cli.Context) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path := ctx.String("config"); path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet("width") {
		cfg.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Height = ctx.Int("height")
	}
	if ctx.IsSet("title") {
		cfg.Title = ctx.String("title")
	}
	if ctx.IsSet("frames") {
		cfg.FramesInFlight = ctx.Int("frames")
	}
	if ctx.IsSet("shader-dir") {
		cfg.ShaderDir = ctx.String("shader-dir")
	}
	if ctx.IsSet("texture") {
		cfg.Texture = ctx.String("texture")
	}
	if ctx.IsSet("validation") {
		cfg.Validation = ctx.Bool("validation")
	}
	if ctx.IsSet("no-mailbox") {
		cfg.PreferMailbox = !ctx.Bool("no-mailbox")
	}

	return cfg, config.Validate(&cfg)
}
