package main

import (
	"os"

	"github.com/reelfolio/reelfolio/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
