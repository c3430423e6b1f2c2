package migration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/odin-run/odin/internal/domain/pathsafe"
)

// Export produces a fresh content-addressed bundle at outDir from the
// eight fixed sections sourced from sourceRoot ({skills, learnings, opaque,
// quarantine}) and odinDir ({runtime, checkpoints, events, meta}). outDir is
// deleted and recreated; it must not equal either input root and must not
// lie inside any mapped section.
func Export(ctx context.Context, sourceRoot, odinDir, outDir string) error {
	if !isDir(sourceRoot) {
		return wrapf("export: source_root %s does not exist or is not a directory", sourceRoot)
	}
	if !isDir(odinDir) {
		return wrapf("export: odin_dir %s does not exist or is not a directory", odinDir)
	}

	if canonicalEqual(outDir, sourceRoot) || canonicalEqual(outDir, odinDir) {
		return wrapf("export: out_dir must not equal source_root or odin_dir")
	}
	for _, section := range Sections {
		sectionRoot := sectionSourceRoot(section, sourceRoot, odinDir)
		sectionPath := filepath.Join(sectionRoot, section)
		if outDirInsideSection(outDir, sectionPath) {
			return wrapf("export: out_dir must not lie inside mapped section %s", section)
		}
	}

	if err := os.RemoveAll(outDir); err != nil {
		return wrapf("export: failed to clear out_dir: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return wrapf("export: failed to create out_dir: %w", err)
	}

	var writtenRel []string
	for _, section := range Sections {
		if err := os.MkdirAll(filepath.Join(outDir, section), 0o755); err != nil {
			return wrapf("export: failed to create section %s: %w", section, err)
		}
		sectionRoot := sectionSourceRoot(section, sourceRoot, odinDir)
		rels, err := copySection(filepath.Join(sectionRoot, section), filepath.Join(outDir, section))
		if err != nil {
			return wrapf("export: failed to copy section %s: %w", section, err)
		}
		for _, rel := range rels {
			writtenRel = append(writtenRel, section+"/"+rel)
		}
	}

	if len(writtenRel) == 0 {
		return wrapf("export: zero files copied across all mapped sections")
	}

	manifestPath := filepath.Join(outDir, ManifestFileName)
	if err := writeManifest(manifestPath); err != nil {
		return wrapf("export: failed to write manifest: %w", err)
	}
	writtenRel = append(writtenRel, ManifestFileName)

	if err := writeChecksums(ctx, outDir, writtenRel); err != nil {
		return wrapf("export: failed to write checksums: %w", err)
	}

	return nil
}

func sectionSourceRoot(section, sourceRoot, odinDir string) string {
	if sourceRootSections[section] {
		return sourceRoot
	}
	return odinDir
}

// outDirInsideSection reports whether outDir lies at or beneath
// sectionPath, using canonicalize-allow-missing on both sides so neither
// tree needs to exist yet.
func outDirInsideSection(outDir, sectionPath string) bool {
	canonicalOut, errOut := pathsafe.CanonicalizeAllowMissing(outDir)
	canonicalSection, errSection := pathsafe.CanonicalizeAllowMissing(sectionPath)
	if errOut != nil || errSection != nil {
		return false
	}
	return pathsafe.IsWithinOrEqual(canonicalOut, canonicalSection)
}

// copySection copies every regular file under src into dst, iterating in
// sorted order, and returns the forward-slash relative paths written. A
// missing src is treated as an empty section rather than an error.
func copySection(src, dst string) ([]string, error) {
	rels, err := listRegularFilesSorted(src)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if err := copyFile(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return nil, err
		}
	}
	return rels, nil
}

func writeManifest(path string) error {
	out, err := json.MarshalIndent(newManifest(), "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	return os.WriteFile(path, out, 0o644) //nolint:gosec // bundle manifest is a non-executable, non-sensitive JSON document
}

// writeChecksums computes the SHA-256 digest of every file in rel
// (relative to root) with bounded concurrency, then writes them to
// checksums.sha256 sorted by path — concurrency affects only the hashing,
// never the deterministic output order.
func writeChecksums(ctx context.Context, root string, rel []string) error {
	digests := make([]string, len(rel))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	var mu sync.Mutex
	for i, path := range rel {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			digest, err := sha256File(filepath.Join(root, path))
			if err != nil {
				return err
			}
			mu.Lock()
			digests[i] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	type checksumLine struct {
		path, digest string
	}
	lines := make([]checksumLine, len(rel))
	for i, path := range rel {
		lines[i] = checksumLine{path: path, digest: digests[i]}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].path < lines[j].path })

	var buf []byte
	for _, l := range lines {
		buf = append(buf, l.digest+"  "+l.path+"\n"...)
	}
	return os.WriteFile(filepath.Join(root, ChecksumsFileName), buf, 0o644) //nolint:gosec // checksum manifest is a non-executable, non-sensitive text file
}
