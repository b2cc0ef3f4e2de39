// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Command vkframe opens a window and draws a textured,
// spinning quad until the window is closed.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"

	"github.com/gviegas/vkframe/internal/log"
)

// GLFW and the presentation engine must be driven from the
// main thread.
func init() { runtime.LockOSThread() }

func main() {
	app := cli.NewApp()
	app.Name = "vkframe"
	app.Usage = "render frames to a window through Vulkan"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "open a window and run the frame loop",
			Description: `
Open a window, load the Vulkan driver and draw frames until the
window is closed or the process is interrupted.

Settings are taken from the defaults, then from the Lua file given
by --config, then from any flag set explicitly.`,
			Flags:  runFlags,
			Action: Run,
		},
		{
			Name:   "list-devices",
			Usage:  "list the physical devices considered by the driver",
			Flags:  []cli.Flag{validationFlag},
			Action: ListDevices,
		},
	}

	if err := app.Run(os.Args); err != nil {
		exitWith(err)
	}
}

// exitWith prints err to stderr and exits with a non-zero
// status.
func exitWith(err error) {
	if log.IsTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s: %v\x1b[0m\n", os.Args[0], err)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
	}
	os.Exit(1)
}
