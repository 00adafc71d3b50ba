package main

import (
	"os"

	"github.com/sugarline/bakehouse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
