package main

import (
	"os"

	"github.com/analog-home/analog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
