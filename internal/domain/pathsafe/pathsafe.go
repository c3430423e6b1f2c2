// Package pathsafe implements the lexical and canonical-when-exists path
// normalization rules shared by the stagehand sandbox policy and the
// migration export/verify pipeline (see design note "Path safety").
package pathsafe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LexicalNormalize drops "." components and pops on "..", never crossing
// above the path's own root. A leading ".." on a relative path is silently
// dropped rather than retained, matching the normalization used by the
// migration bundle writer.
func LexicalNormalize(raw string) string {
	isAbs := filepath.IsAbs(raw)
	parts := strings.Split(filepath.ToSlash(raw), "/")
	var stack []string
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	joined := strings.Join(stack, "/")
	if isAbs {
		return "/" + joined
	}
	return joined
}

// CanonicalizeAllowMissing resolves path to an absolute, symlink-resolved
// form even when its tail does not yet exist: it walks up to the nearest
// existing ancestor, canonicalizes that, then re-appends the missing tail
// components lexically. Used to compare an export/inventory output path
// against mapped input sections before the output directory is created.
func CanonicalizeAllowMissing(path string) (string, error) {
	absolute := path
	if !filepath.IsAbs(absolute) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to read current working directory: %w", err)
		}
		absolute = filepath.Join(cwd, absolute)
	}

	existing := absolute
	var missingTail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return "", fmt.Errorf("failed to resolve output path ancestor for %s", path)
		}
		missingTail = append([]string{filepath.Base(existing)}, missingTail...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize path ancestor %s: %w", existing, err)
	}
	for _, component := range missingTail {
		resolved = filepath.Join(resolved, component)
	}
	return LexicalNormalize(resolved), nil
}

// IsWithinOrEqual reports whether candidate equals base or is a
// path-component-wise strict descendant of it.
func IsWithinOrEqual(candidate, base string) bool {
	candidate = filepath.Clean(candidate)
	base = filepath.Clean(base)
	if candidate == base {
		return true
	}
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
