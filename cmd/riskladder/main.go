package main

import (
	"os"

	"github.com/songzhibin97/riskladder/cmd/riskladder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
