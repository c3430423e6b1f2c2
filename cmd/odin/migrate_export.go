package main

import (
	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/infrastructure/migration"
)

func init() {
	migrateCmd.AddCommand(newMigrateExportCmd())
}

func newMigrateExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <source-root> <odin-dir> <out-dir>",
		Short: "Produce a content-addressed bundle from source_root and odin_dir",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migration.Export(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "exported", "out_dir": args[2]})
		},
	}
}
