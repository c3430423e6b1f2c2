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

func TestMigrateInventory_WritesCounts(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "skills"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "skills", "a.yaml"), []byte("name: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "skills", "b.yaml"), []byte("name: b\n"), 0o644))
	outputPath := filepath.Join(t.TempDir(), "inventory.json")

	cmd := newMigrateInventoryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{inputDir, outputPath})
	require.NoError(t, cmd.Execute())

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var snapshot map[string]int
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, 2, snapshot["skills"])
	assert.Equal(t, 0, snapshot["events"])
}

func TestMigrateInventory_OutputInsideCountedSectionFails(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "skills"), 0o755))

	cmd := newMigrateInventoryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{inputDir, filepath.Join(inputDir, "skills", "inventory.json")})
	require.Error(t, cmd.Execute())
}
