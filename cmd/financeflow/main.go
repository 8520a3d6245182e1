package main

import (
	"os"

	"github.com/financeflow-dev/financeflow/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
