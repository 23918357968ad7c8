// databucket CLI - client for Data Bucket webhook capture servers
package main

import "github.com/ajoealex/data-bucket-ui/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
