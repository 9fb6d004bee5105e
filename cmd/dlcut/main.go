// Package main is the entry point for the dlcut application.
package main

import (
	"os"

	"github.com/jmylchreest/dlcut/cmd/dlcut/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
