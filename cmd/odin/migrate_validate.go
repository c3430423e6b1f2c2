package main

import (
	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/infrastructure/migration"
)

func init() {
	migrateCmd.AddCommand(newMigrateValidateCmd())
}

func newMigrateValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle-dir>",
		Short: "Verify a migration bundle's structure and checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migration.Verify(args[0]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "valid", "bundle_dir": args[0]})
		},
	}
}
