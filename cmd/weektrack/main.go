package main

import (
	"os"

	"github.com/jlindqvist/weektrack/cmd/weektrack/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
