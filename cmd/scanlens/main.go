// Package main provides the scanlens CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/scanlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
