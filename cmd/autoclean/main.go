package main

import (
	"os"

	"github.com/tjfontaine/autoclean-api/cmd/autoclean/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
