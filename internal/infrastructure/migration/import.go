package migration

import "path/filepath"

// Import verifies bundleDir and then copies each of its eight sections
// into destRoot, reconstructing a plain directory tree from a
// content-addressed bundle. It is the CLI-level inverse of Export; unlike
// Export it is additive and never deletes destRoot first.
func Import(bundleDir, destRoot string) error {
	if err := Verify(bundleDir); err != nil {
		return wrapf("import: bundle failed verification: %w", err)
	}

	for _, section := range Sections {
		if _, err := copySection(filepath.Join(bundleDir, section), filepath.Join(destRoot, section)); err != nil {
			return wrapf("import: failed to copy section %s: %w", section, err)
		}
	}
	return nil
}
