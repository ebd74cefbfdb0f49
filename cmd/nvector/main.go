// Command nvector scans networks for live hosts and open TCP ports and
// renders the result as a network graph.
package main

import (
	"github.com/artofscripting/networkvector/cmd/cli"
)

// Set by ldflags during release builds.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
