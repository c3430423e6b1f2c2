package main

import (
	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/infrastructure/migration"
)

func init() {
	migrateCmd.AddCommand(newMigrateInventoryCmd())
}

func newMigrateInventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory <input-dir> <output-path>",
		Short: "Write a per-section file count snapshot for input-dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migration.WriteInventorySnapshot(args[0], args[1]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "written", "output_path": args[1]})
		},
	}
}
