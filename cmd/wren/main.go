// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/wren-vcs/wren/pkg/command"
	"github.com/wren-vcs/wren/pkg/version"
)

type App struct {
	command.Globals
	Rebase  command.Rebase  `cmd:"rebase" help:"Rewrite every descendant of a recorded set of commit rewrites/abandonments"`
	Abandon command.Abandon `cmd:"abandon" help:"Abandon commits and rebase their descendants onto their nearest surviving ancestor"`
	Log     command.Log     `cmd:"log" help:"Show the commit graph, branch targets, and divergent change ids"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("wren"),
		kong.Description("wren - a descendant rebaser for an operation-log-based version control system"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.GetVersionString(),
		},
	)
	err := ctx.Run(&app.Globals)
	if err == nil {
		return
	}
	os.Exit(1)
}
