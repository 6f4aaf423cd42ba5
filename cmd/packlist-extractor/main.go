package main

import (
	"os"

	"github.com/spherical/packing-list-extractor/cmd/packlist-extractor/commands"
	"github.com/spherical/packing-list-extractor/cmd/packlist-extractor/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
