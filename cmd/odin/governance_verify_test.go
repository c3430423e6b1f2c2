package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/version"
)

const verifyManifestYAML = `
schema_version: 1
plugin:
  name: stagehand
  version: "1.0.0"
  runtime: process
  compatibility:
    core_version: "%s"
  entrypoint:
    command: /bin/sh
distribution:
  source:
    type: git
    ref: main
  integrity:
    checksum_sha256: "deadbeef"
`

func writeVerifyManifest(t *testing.T, constraint string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "odin.plugin.yaml")
	content := fmt.Sprintf(verifyManifestYAML, constraint)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGovernanceVerify_CompatibleManifest(t *testing.T) {
	version.Version = "1.5.0"
	path := writeVerifyManifest(t, ">=1.0.0")

	cmd := newGovernanceVerifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	var result manifestVerifyResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Compatible)
	assert.Empty(t, result.Incompatible)
}

func TestGovernanceVerify_IncompatibleManifestStillSucceedsWithReason(t *testing.T) {
	version.Version = "0.1.0"
	path := writeVerifyManifest(t, ">=1.0.0")

	cmd := newGovernanceVerifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	var result manifestVerifyResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.False(t, result.Compatible)
	assert.NotEmpty(t, result.Incompatible)
}

func TestGovernanceVerify_SignatureFlagSkipsUnsignedManifest(t *testing.T) {
	version.Version = "1.5.0"
	path := writeVerifyManifest(t, ">=1.0.0")

	cmd := newGovernanceVerifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--verify-signature"})
	require.NoError(t, cmd.Execute())

	var result manifestVerifyResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.False(t, result.SignatureVerified)
}

func TestGovernanceVerify_InvalidManifestFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odin.plugin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	cmd := newGovernanceVerifyCmd()
	cmd.SetArgs([]string{path})
	require.Error(t, cmd.Execute())
}
