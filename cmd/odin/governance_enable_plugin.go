package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/stagehand"
)

func init() {
	governanceCmd.AddCommand(newGovernanceEnablePluginCmd())
}

type enabledPluginSummary struct {
	Plugin           string `json:"plugin"`
	StagehandEnabled bool   `json:"stagehand_enabled,omitempty"`
}

func newGovernanceEnablePluginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable-plugin <permission-envelope.json>",
		Short: "Build and summarize the stagehand sandbox policy implied by a permission envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read permission envelope %s: %w", args[0], err)
			}

			var envelope protocol.PluginPermissionEnvelope
			if err := json.Unmarshal(raw, &envelope); err != nil {
				return fmt.Errorf("failed to parse permission envelope: %w", err)
			}

			policy := stagehand.FromEnvelope(envelope)
			summary := enabledPluginSummary{Plugin: envelope.Plugin, StagehandEnabled: policy.Enabled()}
			return printJSON(cmd, summary)
		},
	}
}
