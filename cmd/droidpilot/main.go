package main

import (
	"os"

	"github.com/droidpilot/droidpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
