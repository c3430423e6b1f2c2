package migration

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/odin-run/odin/internal/domain/pathsafe"
)

// inventorySections is the subset of Sections an inventory snapshot counts.
var inventorySections = []string{"skills", "learnings", "checkpoints", "events"}

type inventorySnapshot struct {
	Skills      int `json:"skills"`
	Learnings   int `json:"learnings"`
	Checkpoints int `json:"checkpoints"`
	Events      int `json:"events"`
}

// WriteInventorySnapshot counts the regular files under each of
// inputDir/{skills,learnings,checkpoints,events} and writes the result as
// stable JSON to outputPath. outputPath must not canonicalize to a location
// under any of those four section roots (including via a symlink alias),
// which would make the snapshot itself part of what it's counting.
func WriteInventorySnapshot(inputDir, outputPath string) error {
	if !isDir(inputDir) {
		return wrapf("inventory: input_dir %s does not exist or is not a directory", inputDir)
	}

	canonicalOutput, err := pathsafe.CanonicalizeAllowMissing(outputPath)
	if err != nil {
		return wrapf("inventory: failed to canonicalize output_path: %w", err)
	}
	for _, section := range inventorySections {
		sectionPath := filepath.Join(inputDir, section)
		canonicalSection, err := pathsafe.CanonicalizeAllowMissing(sectionPath)
		if err != nil {
			continue
		}
		if pathsafe.IsWithinOrEqual(canonicalOutput, canonicalSection) {
			return wrapf("inventory: output_path must not lie under input section %s", section)
		}
	}

	snapshot := inventorySnapshot{}
	counts := map[string]*int{
		"skills":      &snapshot.Skills,
		"learnings":   &snapshot.Learnings,
		"checkpoints": &snapshot.Checkpoints,
		"events":      &snapshot.Events,
	}
	for _, section := range inventorySections {
		rels, err := listRegularFilesSorted(filepath.Join(inputDir, section))
		if err != nil {
			return wrapf("inventory: failed to walk section %s: %w", section, err)
		}
		*counts[section] = len(rels)
	}

	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return wrapf("inventory: failed to marshal snapshot: %w", err)
	}
	out = append(out, '\n')

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return wrapf("inventory: failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil { //nolint:gosec // inventory snapshot is a non-executable, non-sensitive JSON document
		return wrapf("inventory: failed to write snapshot: %w", err)
	}
	return nil
}
