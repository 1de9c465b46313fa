package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/painel-rs/enrich-cli/internal/registry"
	"github.com/painel-rs/enrich-cli/internal/store"
)

var importInputPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the institution registry from a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := registry.Load(importInputPath)
		if err != nil {
			return eris.Wrap(err, "load registry")
		}
		if err := st.ReplaceRecords(ctx, records); err != nil {
			return eris.Wrap(err, "save records")
		}

		snapshot := filepath.Join(cfg.Output.Dir, "instituicoes_normalizadas.json")
		if err := store.WriteSnapshot(snapshot, records); err != nil {
			return eris.Wrap(err, "export normalized records")
		}

		zap.L().Info("import complete",
			zap.Int("records", len(records)),
			zap.String("input", importInputPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInputPath, "input", "", "path to the registry .xlsx file (required)")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}
