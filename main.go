package main

import (
	"log"
	"os"

	"github.com/perfgo/rexbench/cli"
)

// Version information, set by goreleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.New()
	app.SetVersion(version, commit, date)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
