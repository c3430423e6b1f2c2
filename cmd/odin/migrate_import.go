package main

import (
	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/infrastructure/migration"
)

func init() {
	migrateCmd.AddCommand(newMigrateImportCmd())
}

func newMigrateImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle-dir> <dest-root>",
		Short: "Verify a bundle and reconstitute its sections under dest-root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migration.Import(args[0], args[1]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "imported", "dest_root": args[1]})
		},
	}
}
