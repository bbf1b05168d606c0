// Package hostenv provisions tool environments from interpreters installed on
// the host, mirroring what a hosted runner's setup step does with its tool
// cache.
package hostenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.ToolchainFactory = (*Factory)(nil)

// Factory implements ports.ToolchainFactory by resolving tool specs against a
// versioned tool directory and, failing that, the ambient PATH.
type Factory struct {
	toolsDir string
	cacheDir string

	// lookPath is exec.LookPath, injectable for tests.
	lookPath func(file string) (string, error)
}

// NewFactory creates a Factory.
//
// toolsDir holds pre-installed tools laid out as <name>/<version>/bin;
// cacheDir persists hydrated environments keyed by their EnvID.
func NewFactory(toolsDir, cacheDir string) *Factory {
	return &Factory{
		toolsDir: toolsDir,
		cacheDir: cacheDir,
		lookPath: exec.LookPath,
	}
}

// GetEnvironment constructs an environment from a set of tools.
//
// The tools map contains alias->spec pairs (e.g. "python" -> "python@3.9").
// Each resolved tool is exposed twice in a per-environment bin directory:
// under its alias and under its resolved basename, so both `python` and
// `python3.9` work from step commands. Hydrated environments are cached on
// disk keyed by the deterministic EnvID of the tool set.
func (f *Factory) GetEnvironment(ctx context.Context, tools map[string]string) ([]string, error) {
	envID := domain.GenerateEnvID(tools)
	cachePath := filepath.Join(f.cacheDir, envID+".json")

	if cachedEnv, err := LoadEnvFromCache(cachePath); err == nil {
		return cachedEnv, nil
	}

	// Step A: resolve all tools concurrently
	type resolved struct {
		alias string
		path  string
	}
	var (
		mu       sync.Mutex
		binaries []resolved
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for alias, spec := range tools {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			name, version, ok := strings.Cut(spec, "@")
			if !ok || name == "" || version == "" {
				return zerr.With(zerr.Wrap(domain.ErrInvalidToolSpec, "cannot hydrate environment"), "spec", spec)
			}

			path, err := f.resolve(name, version)
			if err != nil {
				return zerr.With(zerr.With(err, "alias", alias), "spec", spec)
			}

			mu.Lock()
			binaries = append(binaries, resolved{alias: alias, path: path})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step B: build the bin directory of symlinks
	binDir, err := filepath.Abs(filepath.Join(f.cacheDir, envID, "bin"))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve environment bin directory")
	}
	if err := os.RemoveAll(binDir); err != nil {
		return nil, zerr.Wrap(err, "failed to reset environment bin directory")
	}
	if err := os.MkdirAll(binDir, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create environment bin directory")
	}

	for _, bin := range binaries {
		names := []string{bin.alias}
		if base := filepath.Base(bin.path); base != bin.alias {
			names = append(names, base)
		}
		for _, linkName := range names {
			link := filepath.Join(binDir, linkName)
			if err := os.Symlink(bin.path, link); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, zerr.With(zerr.Wrap(err, "failed to link tool"), "tool", linkName)
			}
		}
	}

	env := []string{"PATH=" + binDir}
	slices.Sort(env)

	// Cache write failure is not fatal; the environment is still valid.
	_ = SaveEnvToCache(cachePath, env)

	return env, nil
}

// resolve locates the binary for name@version.
//
// The versioned tool directory wins over PATH probing so explicitly installed
// toolchains are preferred over whatever the shell happens to expose.
func (f *Factory) resolve(name, version string) (string, error) {
	if f.toolsDir != "" {
		candidate := filepath.Join(f.toolsDir, name, version, "bin", name)
		if isExecutable(candidate) {
			return filepath.Abs(candidate)
		}
	}

	// Probe PATH for conventional versioned binary names, most specific
	// first: python@3.9 tries python3.9, then python-3.9.
	for _, candidate := range []string{name + version, name + "-" + version} {
		if path, err := f.lookPath(candidate); err == nil {
			return path, nil
		}
	}

	err := zerr.With(zerr.Wrap(domain.ErrToolNotFound, "cannot resolve tool"), "tool", name)
	return "", zerr.With(err, "version", version)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Mode()&0o111 != 0
}

// LoadEnvFromCache reads a hydrated environment from the given path.
func LoadEnvFromCache(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path derives from the cache dir
	if err != nil {
		return nil, err
	}

	var env []string
	if err := unmarshalEnv(data, &env); err != nil {
		return nil, zerr.Wrap(err, "failed to parse environment cache")
	}

	// An environment whose bin directory was cleaned (e.g. lane clean) must
	// be rehydrated, not trusted.
	for _, entry := range env {
		if dir, ok := strings.CutPrefix(entry, "PATH="); ok {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("stale environment cache: %w", err)
			}
		}
	}

	return env, nil
}

// SaveEnvToCache persists a hydrated environment to the given path.
func SaveEnvToCache(path string, env []string) error {
	data, err := marshalEnv(env)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal environment")
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create environment cache directory")
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, "failed to write environment cache")
	}
	return nil
}
