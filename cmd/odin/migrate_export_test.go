package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigrateSourceTree(t *testing.T) (sourceRoot, odinDir string) {
	t.Helper()
	sourceRoot = t.TempDir()
	odinDir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "skills"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "skills", "a.yaml"), []byte("name: a\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(odinDir, "runtime"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(odinDir, "runtime", "state.json"), []byte(`{}`), 0o644))
	return sourceRoot, odinDir
}

func TestMigrateExport_WritesBundle(t *testing.T) {
	sourceRoot, odinDir := writeMigrateSourceTree(t)
	outDir := filepath.Join(t.TempDir(), "bundle")

	cmd := newMigrateExportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sourceRoot, odinDir, outDir})
	require.NoError(t, cmd.Execute())

	var result map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "exported", result["status"])
	assert.DirExists(t, filepath.Join(outDir, "skills"))
}

func TestMigrateExport_MissingSourceRootFails(t *testing.T) {
	cmd := newMigrateExportCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing"), t.TempDir(), filepath.Join(t.TempDir(), "out")})
	require.Error(t, cmd.Execute())
}
