// Package main provides the adega CLI.
package main

import (
	"os"

	"github.com/Harley062/projeto-IA-Adega/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
