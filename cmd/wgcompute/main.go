package main

import (
	"os"

	"github.com/openfluke/wgcompute/cmd/wgcompute/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
