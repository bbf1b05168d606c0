// Package fs provides file system adapters for walking and hashing files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// skipNames are directory names never descended into: VCS metadata and the
// runner's own state directory.
var skipNames = map[string]struct{}{
	".git":  {},
	".jj":   {},
	".lane": {},
}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every file under root, pruning skipNames directories and
// anything matching the ignore patterns. Paths start with root, the way
// filepath.WalkDir yields them.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := d.Name()
			if d.IsDir() {
				if _, skip := skipNames[name]; skip {
					return filepath.SkipDir
				}
				if matchAny(ignores, name) {
					return filepath.SkipDir
				}
				return nil
			}

			if matchAny(ignores, name) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
