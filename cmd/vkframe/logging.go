// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"github.com/urfave/cli"

	"github.com/gviegas/vkframe/internal/log"
)

var logger = log.New("vkframe")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
