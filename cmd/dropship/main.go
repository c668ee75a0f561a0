package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/drops-platform/dropship/cmd/dropship/commands"
)

const (
	cmdName = "dropship"

	shortDesc = "The drops-client release pipeline CLI."
	longDesc  = `Dropship builds and publishes drops-client releases.

It reads the version from the Cargo manifest, checks whether that
version is already released, compiles and packages the client for every
configured platform in parallel, and publishes a release carrying the
platform archives, a checksum file, and generated release notes.
`
)

func main() {
	cmd := commands.NewRootCmd(cmdName, shortDesc, longDesc)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimLeft(err.Error(), "\n"))
		os.Exit(1)
	}
}
