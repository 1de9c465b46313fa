package main

import "github.com/painel-rs/enrich-cli/internal/model"

var emailsCmd = newEnrichmentCmd("emails", "Discover contact emails only", model.RunKindEmails)

func init() {
	rootCmd.AddCommand(emailsCmd)
}
