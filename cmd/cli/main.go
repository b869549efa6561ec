// Package main is the entry point for the quote-engine CLI.
package main

import (
	"errors"
	"os"

	"quote-engine/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, cmd.ErrRejected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
