package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/domain/schema"
	"github.com/odin-run/odin/internal/infrastructure/pluginmanifest"
	"github.com/odin-run/odin/internal/infrastructure/signing"
	"github.com/odin-run/odin/internal/version"
)

func init() {
	governanceCmd.AddCommand(newGovernanceVerifyCmd())
}

type manifestVerifyResult struct {
	Plugin            string `json:"plugin"`
	Version           string `json:"version"`
	Compatible        bool   `json:"compatible"`
	Incompatible      string `json:"incompatible_reason,omitempty"`
	SignatureVerified bool   `json:"signature_verified,omitempty"`
}

func newGovernanceVerifyCmd() *cobra.Command {
	var verifySignature bool

	cmd := &cobra.Command{
		Use:   "verify <odin.plugin.yaml>",
		Short: "Validate a plugin manifest's schema and core-version compatibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := pluginmanifest.Load(args[0], schema.NewCompiler())
			if err != nil {
				return fmt.Errorf("manifest invalid: %w", err)
			}

			result := manifestVerifyResult{Plugin: manifest.Plugin.Name, Version: manifest.Plugin.Version, Compatible: true}
			if err := pluginmanifest.CheckCompatibility(manifest, version.Get().Version); err != nil {
				result.Compatible = false
				result.Incompatible = err.Error()
			}

			if verifySignature && manifest.Signing != nil {
				verifier := signing.NewCosignVerifier()
				if err := verifier.Verify(cmd.Context(), manifest.Distribution.Source.Ref, *manifest.Signing); err != nil {
					return err
				}
				result.SignatureVerified = true
			}

			return printJSON(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&verifySignature, "verify-signature", false, "shell out to cosign verify-blob when the manifest declares a signing policy")

	return cmd
}
