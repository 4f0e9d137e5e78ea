// Package main is the entry point for the UWealth CLI.
package main

import (
	"os"

	"github.com/mrz1836/uwealth/internal/cli"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
//
//nolint:gochecknoglobals // Build metadata injected at link time
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
