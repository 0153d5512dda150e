package main

import (
	"os"

	"github.com/odyssey-erp/taxjar/cmd/taxjar/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
