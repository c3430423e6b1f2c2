package pluginmanifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/schema"
	"github.com/odin-run/odin/internal/infrastructure/pluginmanifest"
)

const validManifestYAML = `
schema_version: 1
plugin:
  name: example.safe-github
  version: "1.0.0"
  runtime: process
  compatibility:
    core_version: ">=1.0.0, <2.0.0"
  entrypoint:
    command: ./run.sh
distribution:
  source:
    type: git
    ref: main
  integrity:
    checksum_sha256: "deadbeef"
`

func TestParse_ValidManifest(t *testing.T) {
	manifest, err := pluginmanifest.Parse([]byte(validManifestYAML), schema.NewCompiler())
	require.NoError(t, err)
	assert.Equal(t, "example.safe-github", manifest.Plugin.Name)
	assert.Equal(t, "./run.sh", manifest.Plugin.Entrypoint.Command)
}

func TestParse_NilCompilerSkipsValidation(t *testing.T) {
	manifest, err := pluginmanifest.Parse([]byte(validManifestYAML), nil)
	require.NoError(t, err)
	assert.Equal(t, "example.safe-github", manifest.Plugin.Name)
}

func TestParse_RejectsMissingRequiredField(t *testing.T) {
	raw := []byte(`
schema_version: 1
plugin:
  name: example.safe-github
distribution:
  source:
    type: git
    ref: main
  integrity:
    checksum_sha256: "deadbeef"
`)
	_, err := pluginmanifest.Parse(raw, schema.NewCompiler())
	require.Error(t, err)
}

func TestLoad_ReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, pluginmanifest.ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(validManifestYAML), 0o644))

	manifest, err := pluginmanifest.Load(path, schema.NewCompiler())
	require.NoError(t, err)
	assert.Equal(t, "example.safe-github", manifest.Plugin.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := pluginmanifest.Load(filepath.Join(t.TempDir(), "missing.yaml"), schema.NewCompiler())
	require.Error(t, err)
}

func TestCheckCompatibility_SatisfiesConstraint(t *testing.T) {
	manifest := protocol.PluginManifest{
		Plugin: protocol.PluginSpec{
			Name:          "example.safe-github",
			Compatibility: protocol.CompatibilitySpec{CoreVersion: ">=1.0.0, <2.0.0"},
		},
	}
	require.NoError(t, pluginmanifest.CheckCompatibility(manifest, "1.5.0"))
}

func TestCheckCompatibility_ViolatesConstraint(t *testing.T) {
	manifest := protocol.PluginManifest{
		Plugin: protocol.PluginSpec{
			Name:          "example.safe-github",
			Compatibility: protocol.CompatibilitySpec{CoreVersion: ">=2.0.0"},
		},
	}
	err := pluginmanifest.CheckCompatibility(manifest, "1.5.0")
	require.Error(t, err)
}

func TestCheckCompatibility_EmptyConstraintAlwaysCompatible(t *testing.T) {
	manifest := protocol.PluginManifest{Plugin: protocol.PluginSpec{Name: "example.safe-github"}}
	require.NoError(t, pluginmanifest.CheckCompatibility(manifest, "anything"))
}

func TestCheckCompatibility_InvalidCoreVersion(t *testing.T) {
	manifest := protocol.PluginManifest{
		Plugin: protocol.PluginSpec{
			Name:          "example.safe-github",
			Compatibility: protocol.CompatibilitySpec{CoreVersion: ">=1.0.0"},
		},
	}
	err := pluginmanifest.CheckCompatibility(manifest, "not-a-version")
	require.Error(t, err)
}
