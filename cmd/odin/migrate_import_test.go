package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/infrastructure/migration"
)

func TestMigrateImport_ReconstitutesBundle(t *testing.T) {
	sourceRoot, odinDir := writeMigrateSourceTree(t)
	bundleDir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, migration.Export(context.Background(), sourceRoot, odinDir, bundleDir))

	destRoot := filepath.Join(t.TempDir(), "dest")

	cmd := newMigrateImportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{bundleDir, destRoot})
	require.NoError(t, cmd.Execute())

	var result map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "imported", result["status"])
	assert.FileExists(t, filepath.Join(destRoot, "skills", "a.yaml"))
}

func TestMigrateImport_RejectsUnverifiableBundle(t *testing.T) {
	cmd := newMigrateImportCmd()
	cmd.SetArgs([]string{t.TempDir(), filepath.Join(t.TempDir(), "dest")})
	require.Error(t, cmd.Execute())
}
