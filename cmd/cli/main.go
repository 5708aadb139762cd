// Package main is the entry point for the microcredit CLI.
package main

import (
	"os"

	"microcredit/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
