package main

import (
	"os"

	"github.com/smuotoe/GeoElevate-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
