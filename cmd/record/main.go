package main

import (
	"os"

	"github.com/gopsql/record/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
