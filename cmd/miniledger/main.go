// Package main is the entry point for the miniledger CLI.
package main

import (
	"os"

	"github.com/greenkode/miniledger/cmd/miniledger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
