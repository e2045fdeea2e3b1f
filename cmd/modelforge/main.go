package main

import (
	"os"

	"github.com/modelforge/modelforge/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
