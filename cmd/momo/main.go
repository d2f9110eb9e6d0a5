package main

import (
	"os"

	"github.com/quantfold/momo/cmd/momo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
