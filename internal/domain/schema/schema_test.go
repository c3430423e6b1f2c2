package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/domain/schema"
)

func TestValidatesWellFormedPluginManifest(t *testing.T) {
	c := schema.NewCompiler()
	raw := []byte(`{
		"schema_version": 1,
		"plugin": {
			"name": "private.ops-watchdog",
			"version": "1.0.0",
			"runtime": "process",
			"compatibility": {"core_version": "1.0.0"},
			"entrypoint": {"command": "./run.sh"}
		},
		"distribution": {
			"source": {"type": "git", "ref": "main"},
			"integrity": {"checksum_sha256": "abc123"}
		}
	}`)
	require.NoError(t, c.ValidateJSON(schema.PluginManifest, raw))
}

func TestRejectsPluginManifestMissingEntrypoint(t *testing.T) {
	c := schema.NewCompiler()
	raw := []byte(`{
		"schema_version": 1,
		"plugin": {
			"name": "p",
			"version": "1.0.0",
			"runtime": "process",
			"compatibility": {"core_version": "1.0.0"}
		},
		"distribution": {
			"source": {"type": "git", "ref": "main"},
			"integrity": {"checksum_sha256": "abc123"}
		}
	}`)
	err := c.ValidateJSON(schema.PluginManifest, raw)
	require.Error(t, err)
}

func TestRejectsSkillRegistryBadSchemaVersion(t *testing.T) {
	c := schema.NewCompiler()
	raw := []byte(`{"schema_version": 2, "scope": "global", "skills": []}`)
	require.Error(t, c.ValidateJSON(schema.SkillRegistry, raw))
}

func TestValidatesSkillRegistryWithSkills(t *testing.T) {
	c := schema.NewCompiler()
	raw := []byte(`{
		"schema_version": 1,
		"scope": "project",
		"skills": [
			{"name": "deploy", "trust_level": "trusted", "source": "project:local"}
		]
	}`)
	require.NoError(t, c.ValidateJSON(schema.SkillRegistry, raw))
}

func TestRejectsSkillRegistryUnknownTrustLevel(t *testing.T) {
	c := schema.NewCompiler()
	raw := []byte(`{
		"schema_version": 1,
		"scope": "project",
		"skills": [
			{"name": "deploy", "trust_level": "unverified", "source": "project:local"}
		]
	}`)
	require.Error(t, c.ValidateJSON(schema.SkillRegistry, raw))
}

func TestCachesCompiledSchemaAcrossCalls(t *testing.T) {
	c := schema.NewCompiler()
	first, err := c.Compiled(schema.PluginManifest)
	require.NoError(t, err)
	second, err := c.Compiled(schema.PluginManifest)
	require.NoError(t, err)
	require.Same(t, first, second)
}
