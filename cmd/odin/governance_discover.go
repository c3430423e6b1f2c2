package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/domain/schema"
	"github.com/odin-run/odin/internal/infrastructure/pluginmanifest"
)

func init() {
	governanceCmd.AddCommand(newGovernanceDiscoverCmd())
}

type discoveredPlugin struct {
	Directory string `json:"directory"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Error     string `json:"error,omitempty"`
}

func newGovernanceDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <plugins-root>",
		Short: "List plugin manifests found under a plugins root directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			entries, err := os.ReadDir(root)
			if err != nil {
				return fmt.Errorf("failed to read plugins root %s: %w", root, err)
			}

			compiler := schema.NewCompiler()
			var discovered []discoveredPlugin
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				manifestPath := filepath.Join(root, entry.Name(), pluginmanifest.ManifestFileName)
				if _, statErr := os.Stat(manifestPath); statErr != nil {
					continue
				}
				manifest, loadErr := pluginmanifest.Load(manifestPath, compiler)
				if loadErr != nil {
					discovered = append(discovered, discoveredPlugin{Directory: entry.Name(), Error: loadErr.Error()})
					continue
				}
				discovered = append(discovered, discoveredPlugin{
					Directory: entry.Name(),
					Name:      manifest.Plugin.Name,
					Version:   manifest.Plugin.Version,
				})
			}

			return printJSON(cmd, discovered)
		},
	}
}
