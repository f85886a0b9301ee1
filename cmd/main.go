package main

import (
	"os"

	"github.com/tcfw/chaind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
