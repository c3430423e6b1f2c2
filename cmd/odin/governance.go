package main

import "github.com/spf13/cobra"

// governanceCmd groups the discover/install/enable-plugin/verify
// subcommands that exercise the plugin-facing half of the governance core.
var governanceCmd = &cobra.Command{
	Use:   "governance",
	Short: "Discover, validate, and gate plugin installs",
}
