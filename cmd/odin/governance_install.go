package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odin-run/odin/internal/application/skills"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/schema"
	"github.com/odin-run/odin/internal/infrastructure/riskreport"
	"github.com/odin-run/odin/internal/infrastructure/skillregistry"
)

func init() {
	governanceCmd.AddCommand(newGovernanceInstallCmd())
}

func newGovernanceInstallCmd() *cobra.Command {
	var (
		scope      string
		skillName  string
		scripts    []string
		readmePath string
		ackBy      string
		sarifPath  string
	)

	cmd := &cobra.Command{
		Use:   "install <registry-path>",
		Short: "Evaluate the install gate for a skill from a scoped registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read registry %s: %w", args[0], err)
			}

			registry, err := skillregistry.ParseScopedRegistry(raw, protocol.SkillScope(scope), schema.NewCompiler())
			if err != nil {
				return err
			}

			record, err := findSkill(registry, skillName)
			if err != nil {
				return err
			}

			candidate := skills.Candidate{Skill: record, Scripts: readScriptBodies(scripts), Readme: readOptionalFile(readmePath)}

			var ack *skills.Acknowledgment
			if ackBy != "" {
				ack = &skills.Acknowledgment{ApprovedBy: ackBy}
			}

			plan, err := skills.EvaluateInstall(candidate, ack)
			if err != nil {
				return err
			}

			if sarifPath != "" {
				if err := writeSARIFReport(sarifPath, skillName, plan); err != nil {
					return err
				}
			}
			return printJSON(cmd, plan)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "registry scope: global, project, or user")
	cmd.Flags().StringVar(&skillName, "skill", "", "skill name to evaluate")
	cmd.Flags().StringSliceVar(&scripts, "script", nil, "path to a script file backing the skill (repeatable)")
	cmd.Flags().StringVar(&readmePath, "readme", "", "path to the skill's readme, if any")
	cmd.Flags().StringVar(&ackBy, "ack", "", "human acknowledgment identifier, if one has already been given")
	cmd.Flags().StringVar(&sarifPath, "sarif", "", "also write the risk-scan findings as a SARIF log to this path")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("skill")

	return cmd
}

func writeSARIFReport(path, skillName string, plan skills.Plan) error {
	f, err := os.Create(path) //nolint:gosec // path is the operator's own --sarif output file
	if err != nil {
		return fmt.Errorf("failed to create SARIF report %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return riskreport.NewFormatter(f).Format(skillName, plan.Findings)
}

func findSkill(registry protocol.SkillRegistry, name string) (protocol.SkillRecord, error) {
	for _, record := range registry.Skills {
		if record.Name == name {
			return record, nil
		}
	}
	return protocol.SkillRecord{}, fmt.Errorf("skill %q not found in registry", name)
}

func readScriptBodies(paths []string) []string {
	bodies := make([]string, 0, len(paths))
	for _, p := range paths {
		bodies = append(bodies, readOptionalFile(p))
	}
	return bodies
}

func readOptionalFile(path string) string {
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(raw)
}
