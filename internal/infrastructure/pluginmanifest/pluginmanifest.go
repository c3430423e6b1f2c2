// Package pluginmanifest loads odin.plugin.yaml files and checks the
// declared compatibility.core_version constraint against the running core
// before the plugin runner resolves an entrypoint.
package pluginmanifest

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/schema"
)

// ManifestFileName is the fixed filename the plugin runner looks for in a
// resolved plugin directory.
const ManifestFileName = "odin.plugin.yaml"

// Load reads and parses path as a PluginManifest, validating it against the
// JSON Schema backstop in internal/domain/schema before returning.
func Load(path string, compiler *schema.Compiler) (protocol.PluginManifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is a resolved plugin-directory manifest, not arbitrary user input
	if err != nil {
		return protocol.PluginManifest{}, apperrors.Pluginf("failed to read plugin manifest %s: %v", path, err)
	}
	return Parse(raw, compiler)
}

// Parse decodes raw YAML bytes into a PluginManifest and validates the
// result against the compiled plugin_manifest schema.
func Parse(raw []byte, compiler *schema.Compiler) (protocol.PluginManifest, error) {
	var manifest protocol.PluginManifest
	if err := yaml.UnmarshalWithOptions(raw, &manifest, yaml.DisallowUnknownField()); err != nil {
		return protocol.PluginManifest{}, apperrors.Pluginf("failed to parse plugin manifest: %v", err)
	}

	if compiler != nil {
		asJSON, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return protocol.PluginManifest{}, apperrors.Pluginf("failed to normalize plugin manifest for validation: %v", err)
		}
		if err := compiler.ValidateJSON(schema.PluginManifest, asJSON); err != nil {
			return protocol.PluginManifest{}, apperrors.Pluginf("plugin manifest failed schema validation: %v", err)
		}
	}

	return manifest, nil
}

// CheckCompatibility verifies coreVersion satisfies the manifest's declared
// compatibility.core_version constraint (a semver constraint expression,
// e.g. ">=1.0.0, <2.0.0"). An empty constraint is treated as compatible
// with any core version.
func CheckCompatibility(manifest protocol.PluginManifest, coreVersion string) error {
	raw := manifest.Plugin.Compatibility.CoreVersion
	if raw == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(raw)
	if err != nil {
		return apperrors.Pluginf("plugin %s declares invalid core_version constraint %q: %v", manifest.Plugin.Name, raw, err)
	}

	version, err := semver.NewVersion(coreVersion)
	if err != nil {
		return apperrors.Pluginf("running core version %q is not a valid semantic version: %v", coreVersion, err)
	}

	if !constraint.Check(version) {
		return apperrors.Pluginf("plugin manifest incompatible with core version: %s requires %s, core is %s", manifest.Plugin.Name, raw, coreVersion)
	}
	return nil
}
