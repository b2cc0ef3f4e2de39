// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/engine"
	"github.com/gviegas/vkframe/wsi"
)

// ListDevices prints the physical devices that the driver
// considered when it was opened.
// A surface is needed to decide suitability, so a hidden
// window is created for the duration of the call.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	if err := wsi.Init(); err != nil {
		return err
	}
	defer wsi.Terminate()

	cfg := engine.DefaultConfig()
	cfg.Validation = ctx.Bool("validation")
	win, err := wsi.NewWindow(cfg.Width, cfg.Height, cfg.Title, wsi.HintHidden)
	if err != nil {
		return errors.Wrap(err, "creating window")
	}
	defer win.Close()

	gpu, err := engine.Open(win, &cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	var buf bytes.Buffer
	devs := gpu.Devices()
	fmt.Fprintf(&buf, "\nSystem provides %d device(s):\n\n", len(devs))
	writeDevices(&buf, devs)
	logger.Notice(buf.String())
	return nil
}

// writeDevices renders devs as a table into w.
// The selected device is marked with an asterisk.
func writeDevices(w io.Writer, devs []driver.DeviceInfo) {
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Device", "Type", "API", "Graphics", "Present", "Memory", "Suitable"})
	for _, d := range devs {
		name := d.Name
		if d.Selected {
			name = "* " + name
		}
		gfx, pres := "-", "-"
		if d.Suitable {
			gfx = strconv.Itoa(d.Families.Graphics)
			pres = strconv.Itoa(d.Families.Present)
		}
		table.Append([]string{
			name,
			d.Type.String(),
			fmt.Sprintf("%d.%d.%d", d.API[0], d.API[1], d.API[2]),
			gfx,
			pres,
			p.Sprintf("%d MiB", d.Memory>>20),
			fmt.Sprintf("%t", d.Suitable),
		})
	}
	table.Render()
}
