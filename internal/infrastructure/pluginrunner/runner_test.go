package pluginrunner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/infrastructure/pluginrunner"
)

func writePlugin(t *testing.T, root, dirName, pluginName, script string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	manifest := `
schema_version: 1
plugin:
  name: ` + pluginName + `
  version: "1.0.0"
  runtime: process
  compatibility:
    core_version: ">=1.0.0"
  entrypoint:
    command: /bin/sh
    args: ["run.sh"]
distribution:
  source:
    type: git
    ref: main
  integrity:
    checksum_sha256: "deadbeef"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "odin.plugin.yaml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755))
}

func TestDispatchEvent_ParsesNoopWhenOutputEmpty(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "example.safe-github", "example.safe-github", "#!/bin/sh\ncat >/dev/null\n")

	runner := pluginrunner.New(root, "")
	directives, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.DirectiveNoop, directives[0].Action)
}

func TestDispatchEvent_ParsesEmittedDirectives(t *testing.T) {
	root := t.TempDir()
	script := "#!/bin/sh\ncat >/dev/null\necho '{\"action\":\"enqueue_task\",\"task_type\":\"poll\"}'\n"
	writePlugin(t, root, "example.safe-github", "example.safe-github", script)

	runner := pluginrunner.New(root, "")
	directives, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.DirectiveEnqueueTask, directives[0].Action)
	assert.Equal(t, "poll", directives[0].TaskType)
}

func TestDispatchEvent_ResolvesDashedDirectoryName(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "example-safe-github", "example.safe-github", "#!/bin/sh\ncat >/dev/null\n")

	runner := pluginrunner.New(root, "")
	_, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.NoError(t, err)
}

func TestDispatchEvent_MissingManifestFails(t *testing.T) {
	root := t.TempDir()
	runner := pluginrunner.New(root, "")
	_, err := runner.DispatchEvent(context.Background(), "nonexistent", protocol.EventEnvelope{EventID: "evt-1"})
	require.Error(t, err)
}

func TestDispatchEvent_IncompatibleCoreVersionFails(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "example.safe-github", "example.safe-github", "#!/bin/sh\ncat >/dev/null\n")

	runner := pluginrunner.New(root, "0.9.0")
	_, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.Error(t, err)
}

func TestDispatchEvent_NonZeroExitIsPluginFailure(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "example.safe-github", "example.safe-github", "#!/bin/sh\ncat >/dev/null\nexit 1\n")

	runner := pluginrunner.New(root, "")
	_, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.Error(t, err)
}

func TestDispatchEvent_MalformedDirectiveLineFails(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "example.safe-github", "example.safe-github", "#!/bin/sh\ncat >/dev/null\necho 'not json'\n")

	runner := pluginrunner.New(root, "")
	_, err := runner.DispatchEvent(context.Background(), "example.safe-github", protocol.EventEnvelope{EventID: "evt-1"})
	require.Error(t, err)
}
