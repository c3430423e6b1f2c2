// Package migration implements the content-addressed export/inventory/
// verify bundle pipeline: a whole-directory replacement of an output tree
// containing eight fixed sections, a manifest.json, and a checksums.sha256
// file covering every written payload.
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/odin-run/odin/internal/domain/pathsafe"
)

// Sections is the fixed, ordered set of bundle section names.
var Sections = []string{"skills", "learnings", "runtime", "checkpoints", "events", "opaque", "quarantine", "meta"}

// sourceRootSections are copied from source_root during export.
var sourceRootSections = map[string]bool{"skills": true, "learnings": true, "opaque": true, "quarantine": true}

// ManifestFileName and ChecksumsFileName are the two fixed root-level
// files every bundle carries alongside its eight section directories.
const (
	ManifestFileName  = "manifest.json"
	ChecksumsFileName = "checksums.sha256"
)

// manifestJSON is the fixed-shape document written at the bundle root.
// Field order is irrelevant to determinism (json.Marshal on a struct is
// already order-stable); only the checksums file's line order matters.
type manifestJSON struct {
	SchemaVersion        int                    `json:"schema_version"`
	UserDataModelVersion int                    `json:"user_data_model_version"`
	Skills               map[string]interface{} `json:"skills"`
	Learnings            map[string]interface{} `json:"learnings"`
	Runtime              map[string]interface{} `json:"runtime"`
	Checkpoints          map[string]interface{} `json:"checkpoints"`
	Events               map[string]interface{} `json:"events"`
	Opaque               map[string]interface{} `json:"opaque"`
	Quarantine           map[string]interface{} `json:"quarantine"`
	Meta                 map[string]interface{} `json:"meta"`
}

func newManifest() manifestJSON {
	return manifestJSON{
		SchemaVersion:        1,
		UserDataModelVersion: 1,
		Skills:               map[string]interface{}{},
		Learnings:            map[string]interface{}{},
		Runtime:              map[string]interface{}{},
		Checkpoints:          map[string]interface{}{},
		Events:               map[string]interface{}{},
		Opaque:               map[string]interface{}{},
		Quarantine:           map[string]interface{}{},
		Meta:                 map[string]interface{}{},
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func canonicalEqual(a, b string) bool {
	ca, errA := pathsafe.CanonicalizeAllowMissing(a)
	cb, errB := pathsafe.CanonicalizeAllowMissing(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}

// sha256File computes the lowercase-hex SHA-256 digest of the file at path.
func sha256File(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is always derived from a bundle walk, not raw user input
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// listRegularFilesSorted walks root and returns every regular file's path
// relative to root, forward-slash normalized and lexically sorted.
func listRegularFilesSorted(root string) ([]string, error) {
	var relPaths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(relPaths)
	return relPaths, nil
}

// copyFile copies src to dst, creating dst's parent directory and
// preserving the source file's mode bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // src enumerated from a sorted directory walk of a validated section root
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

func wrapf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
