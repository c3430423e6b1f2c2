package main

import "github.com/spf13/cobra"

// migrateCmd groups the export/validate/import/inventory subcommands that
// drive the content-addressed migration bundle pipeline.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Export, verify, import, and inventory migration bundles",
}
