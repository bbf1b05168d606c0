package hostenv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/internal/core/domain"
)

func installTool(t *testing.T, toolsDir, name, version string) string {
	t.Helper()
	binDir := filepath.Join(toolsDir, name, version, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o750))
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func pathOf(t *testing.T, env []string) string {
	t.Helper()
	for _, entry := range env {
		if dir, ok := strings.CutPrefix(entry, "PATH="); ok {
			return dir
		}
	}
	t.Fatal("environment has no PATH entry")
	return ""
}

func TestFactory_GetEnvironment_VersionedToolDir(t *testing.T) {
	toolsDir := t.TempDir()
	installTool(t, toolsDir, "python", "3.9")

	f := NewFactory(toolsDir, t.TempDir())

	env, err := f.GetEnvironment(context.Background(), map[string]string{"python": "python@3.9"})
	require.NoError(t, err)

	binDir := pathOf(t, env)
	link, err := os.Readlink(filepath.Join(binDir, "python"))
	require.NoError(t, err)
	assert.Contains(t, link, filepath.Join("python", "3.9", "bin", "python"))
}

func TestFactory_GetEnvironment_PathProbe(t *testing.T) {
	f := NewFactory("", t.TempDir())
	f.lookPath = func(file string) (string, error) {
		if file == "python3.13" {
			return "/usr/bin/python3.13", nil
		}
		return "", exec.ErrNotFound
	}

	env, err := f.GetEnvironment(context.Background(), map[string]string{"python": "python@3.13"})
	require.NoError(t, err)

	binDir := pathOf(t, env)
	// Linked under the alias and under the resolved basename.
	for _, name := range []string{"python", "python3.13"} {
		link, err := os.Readlink(filepath.Join(binDir, name))
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/python3.13", link)
	}
}

func TestFactory_GetEnvironment_ToolNotFound(t *testing.T) {
	f := NewFactory("", t.TempDir())
	f.lookPath = func(string) (string, error) {
		return "", exec.ErrNotFound
	}

	_, err := f.GetEnvironment(context.Background(), map[string]string{"python": "python@9.9"})
	require.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestFactory_GetEnvironment_InvalidSpec(t *testing.T) {
	f := NewFactory("", t.TempDir())

	for _, spec := range []string{"python", "python@", "@3.9"} {
		_, err := f.GetEnvironment(context.Background(), map[string]string{"python": spec})
		require.ErrorIs(t, err, domain.ErrInvalidToolSpec, "spec %q", spec)
	}
}

func TestFactory_GetEnvironment_CachedOnDisk(t *testing.T) {
	toolsDir := t.TempDir()
	cacheDir := t.TempDir()
	installTool(t, toolsDir, "python", "3.9")

	f := NewFactory(toolsDir, cacheDir)
	tools := map[string]string{"python": "python@3.9"}

	first, err := f.GetEnvironment(context.Background(), tools)
	require.NoError(t, err)

	// A second factory must serve the hydrated environment from the disk
	// cache without resolving again.
	cached := NewFactory(toolsDir, cacheDir)
	cached.lookPath = func(string) (string, error) {
		t.Fatal("lookPath must not be called on a cache hit")
		return "", nil
	}

	second, err := cached.GetEnvironment(context.Background(), tools)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFactory_GetEnvironment_StaleCacheRehydrates(t *testing.T) {
	toolsDir := t.TempDir()
	cacheDir := t.TempDir()
	installTool(t, toolsDir, "python", "3.9")

	f := NewFactory(toolsDir, cacheDir)
	tools := map[string]string{"python": "python@3.9"}

	env, err := f.GetEnvironment(context.Background(), tools)
	require.NoError(t, err)

	// Removing the bin directory invalidates the disk cache.
	require.NoError(t, os.RemoveAll(pathOf(t, env)))

	env, err = f.GetEnvironment(context.Background(), tools)
	require.NoError(t, err)
	_, statErr := os.Stat(pathOf(t, env))
	require.NoError(t, statErr)
}
