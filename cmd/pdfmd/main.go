package main

import (
	"os"

	"github.com/docforge/pdfmd/cmd/pdfmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
