// cmd/slayer/main.go
//
// This is the entry point for the slayer suite CLI.
// When you run `slayer` from any directory, that directory is the project:
// its .slayer/ folder holds the config, the catalog plugins, the logs and
// the saved project documents.
//
// Without a subcommand the host TUI starts.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
