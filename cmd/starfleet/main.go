// Package main is the starfleet command.
package main

import (
	"os"

	"github.com/leapstack-labs/starfleet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
