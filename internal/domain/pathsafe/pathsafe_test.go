package pathsafe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/domain/pathsafe"
)

func TestLexicalNormalizeDropsDotAndPopsDotDot(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/a/b/../c", "/a/c"},
		{"/a/./b", "/a/b"},
		{"a/b/../../c", "c"},
		{"/a/../../b", "/b"},
		{"../x", "x"},
		{"/", "/"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, pathsafe.LexicalNormalize(tc.in), "input %q", tc.in)
	}
}

func TestCanonicalizeAllowMissingResolvesMissingTail(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "not", "yet", "created")

	resolved, err := pathsafe.CanonicalizeAllowMissing(target)
	require.NoError(t, err)

	canonicalDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(canonicalDir, "not", "yet", "created"), resolved)
}

func TestCanonicalizeAllowMissingResolvesSymlinkAncestor(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(real, 0o755))
	link := filepath.Join(dir, "alias")
	require.NoError(t, os.Symlink(real, link))

	resolved, err := pathsafe.CanonicalizeAllowMissing(filepath.Join(link, "child"))
	require.NoError(t, err)

	canonicalReal, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(canonicalReal, "child"), resolved)
}

func TestIsWithinOrEqual(t *testing.T) {
	require.True(t, pathsafe.IsWithinOrEqual("/w", "/w"))
	require.True(t, pathsafe.IsWithinOrEqual("/w/a/b", "/w"))
	require.False(t, pathsafe.IsWithinOrEqual("/wider", "/w"))
	require.False(t, pathsafe.IsWithinOrEqual("/", "/w"))
	require.False(t, pathsafe.IsWithinOrEqual("/x/a", "/w"))
}
