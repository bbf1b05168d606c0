package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/internal/adapters/fs"
)

func newHasher() *fs.Hasher {
	return fs.NewHasher(fs.NewWalker())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHashFiles_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "poetry.lock", "abc")

	h := newHasher()

	first, err := h.HashFiles(dir, []string{"poetry.lock"})
	require.NoError(t, err)
	require.Len(t, first, 16)

	second, err := h.HashFiles(dir, []string{"poetry.lock"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHashFiles_ContentSensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "poetry.lock", "v1")

	h := newHasher()

	before, err := h.HashFiles(dir, []string{"poetry.lock"})
	require.NoError(t, err)

	writeFile(t, dir, "poetry.lock", "v2")
	after, err := h.HashFiles(dir, []string{"poetry.lock"})
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestHashFiles_StableAcrossRoots(t *testing.T) {
	// The same tree materialized in two directories must hash identically,
	// otherwise every fresh checkout would miss the cache.
	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		writeFile(t, dir, "poetry.lock", "locked")
	}

	h := newHasher()

	hashA, err := h.HashFiles(dirA, []string{"poetry.lock"})
	require.NoError(t, err)
	hashB, err := h.HashFiles(dirB, []string{"poetry.lock"})
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestHashFiles_NoMatchIsError(t *testing.T) {
	dir := t.TempDir()

	h := newHasher()

	_, err := h.HashFiles(dir, []string{"poetry.lock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files matched pattern")
}

func TestHashFiles_GlobAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements/base.txt", "django")
	writeFile(t, dir, "requirements/dev.txt", "pytest")
	writeFile(t, dir, "README.md", "ignored")

	h := newHasher()

	viaGlob, err := h.HashFiles(dir, []string{"requirements/*.txt"})
	require.NoError(t, err)

	viaDir, err := h.HashFiles(dir, []string{"requirements"})
	require.NoError(t, err)

	// Both forms cover the same files with the same relative paths.
	assert.Equal(t, viaGlob, viaDir)
}

func TestHashFiles_RenameChangesHash(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "a.lock", "same content")
	writeFile(t, dirB, "b.lock", "same content")

	h := newHasher()

	hashA, err := h.HashFiles(dirA, []string{"*.lock"})
	require.NoError(t, err)
	hashB, err := h.HashFiles(dirB, []string{"*.lock"})
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}
