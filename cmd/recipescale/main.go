// Package main is the entry point for the recipescale CLI.
package main

import (
	"os"

	"github.com/jmylchreest/recipescale/cmd/recipescale/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
