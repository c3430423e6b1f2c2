// Package sysconfig loads odin's ambient system configuration file
// ($HOME/.odin/config.yaml, overridable with --config): permissive YAML
// decode, safe zero-value defaults when the file is absent.
package sysconfig

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// System is the shape of $HOME/.odin/config.yaml.
type System struct {
	Security  SecurityConfig  `yaml:"security"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Migration MigrationConfig `yaml:"migration"`
}

// SecurityConfig controls the orchestrator's default grant posture.
type SecurityConfig struct {
	// RequireApprovalForDestructive seeds policy.StaticEngine's
	// destructive-tier approval gate.
	RequireApprovalForDestructive bool `yaml:"require_approval_for_destructive"`
}

// PluginsConfig locates the plugin directory tree the runner resolves
// plugin names against, and pins the core version plugin manifests are
// checked against.
type PluginsConfig struct {
	Root        string `yaml:"root"`
	CoreVersion string `yaml:"core_version"`
}

// MigrationConfig carries default source_root and odin_dir values. The
// `migrate` subcommands take their roots as required positional arguments
// and do not read these fields.
type MigrationConfig struct {
	SourceRoot string `yaml:"source_root"`
	OdinDir    string `yaml:"odin_dir"`
}

// Default returns a System with safe zero-value defaults: no destructive
// approval gate, an empty plugin root, no migration defaults. Odin runs
// out of the box without a config file.
func Default() *System {
	return &System{}
}

// Load reads path as a System config. A missing file returns Default()
// rather than an error.
func Load(path string) (*System, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	raw, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file, resolved from $HOME or --config
	if err != nil {
		return nil, fmt.Errorf("failed to read odin system config: %w", err)
	}

	var cfg System
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse odin system config: %w", err)
	}
	return &cfg, nil
}
