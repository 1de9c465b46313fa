package main

import "github.com/painel-rs/enrich-cli/internal/model"

var coordsCmd = newEnrichmentCmd("coords", "Resolve city coordinates only", model.RunKindCoords)

func init() {
	rootCmd.AddCommand(coordsCmd)
}
