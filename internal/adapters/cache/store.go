// Package cache implements the keyed step cache and the run result store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore using a directory per cache key.
//
// Layout under the store directory:
//
//	<sanitized-key>-<xxhash(key)>/
//	    meta.json        key, paths and save time
//	    data/<path>...   verbatim copies of the cached paths
type Store struct {
	dir string
}

// NewStore creates a cache store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

type entryMeta struct {
	Key     string    `json:"key"`
	Paths   []string  `json:"paths"`
	SavedAt time.Time `json:"saved_at"`
}

// Restore copies the paths stored under key back into root.
// It returns false with a nil error when the key is not present.
func (s *Store) Restore(ctx context.Context, key, root string, paths []string) (bool, error) {
	entry := s.entryDir(key)

	data, err := os.ReadFile(filepath.Join(entry, "meta.json")) //nolint:gosec // entry is derived from the store dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.Wrap(err, domain.ErrCacheRestoreFailed.Error())
	}

	var meta entryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		// A corrupt entry is treated as a miss; the save after the step
		// run will overwrite it.
		return false, nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		rel, err := relativeWithinRoot(root, path)
		if err != nil {
			return false, err
		}

		src := filepath.Join(entry, "data", rel)
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// The entry was saved with a different path set.
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, domain.ErrCacheRestoreFailed.Error()), "path", path)
		}

		dst := filepath.Join(root, rel)
		if err := os.RemoveAll(dst); err != nil {
			return false, zerr.With(zerr.Wrap(err, domain.ErrCacheRestoreFailed.Error()), "path", path)
		}
		if err := copyTree(src, dst); err != nil {
			return false, zerr.With(zerr.Wrap(err, domain.ErrCacheRestoreFailed.Error()), "path", path)
		}
	}

	return true, nil
}

// Save stores the given paths (relative to root) under key, replacing any
// previous entry for the same key.
func (s *Store) Save(ctx context.Context, key, root string, paths []string) error {
	entry := s.entryDir(key)

	// Build the new entry in a staging directory first so a failed save
	// never leaves a half-written entry behind.
	staging := entry + ".tmp"
	if err := os.RemoveAll(staging); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}
	if err := os.MkdirAll(filepath.Join(staging, "data"), domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := relativeWithinRoot(root, path)
		if err != nil {
			return err
		}

		src := filepath.Join(root, rel)
		if _, err := os.Stat(src); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheSaveFailed.Error()), "path", path)
		}
		if err := copyTree(src, filepath.Join(staging, "data", rel)); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheSaveFailed.Error()), "path", path)
		}
	}

	meta, err := json.MarshalIndent(entryMeta{
		Key:     key,
		Paths:   paths,
		SavedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}
	if err := os.WriteFile(filepath.Join(staging, "meta.json"), meta, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}

	if err := os.RemoveAll(entry); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}
	if err := os.Rename(staging, entry); err != nil {
		return zerr.Wrap(err, domain.ErrCacheSaveFailed.Error())
	}

	return nil
}

// entryDir maps a cache key to its entry directory. The key is sanitized for
// the file system and suffixed with its xxhash so distinct keys that sanitize
// to the same string never collide.
func (s *Store) entryDir(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)

	const maxKeyLen = 80
	if len(sanitized) > maxKeyLen {
		sanitized = sanitized[:maxKeyLen]
	}

	return filepath.Join(s.dir, fmt.Sprintf("%s-%016x", sanitized, xxhash.Sum64String(key)))
}

func relativeWithinRoot(root, path string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", zerr.Wrap(err, "failed to get absolute path of root")
	}
	pathAbs, err := filepath.Abs(filepath.Join(root, path))
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to get absolute path"), "path", path)
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve relative path"), "path", path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.Wrap(domain.ErrCachePathOutsideRoot, "invalid cache path"), "path", path)
	}
	return rel, nil
}

// copyTree copies a file, directory tree or symlink from src to dst,
// preserving file modes.
func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)

	case info.IsDir():
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		return nil

	default:
		return copyFile(src, dst, info.Mode().Perm())
	}
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // paths derive from validated cache entries
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort close in defer

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // see above
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
