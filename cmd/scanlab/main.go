// Command scanlab is the entry point for the scanner CLI and API server.
package main

import (
	"github.com/scanlab-io/scanlab/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
