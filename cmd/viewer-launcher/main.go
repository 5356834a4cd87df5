// Package main is the entry point for the viewer-launcher CLI.
//
// Build-time variables (version, commit, date) are injected via ldflags:
//
//	go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)" ./cmd/viewer-launcher
package main

import (
	"github.com/shinji-kodama/viewer-launcher/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
