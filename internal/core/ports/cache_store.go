package ports

import "context"

// CacheStore persists step cache entries: sets of paths addressed by an
// expanded cache key.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Restore copies the paths stored under key back into root.
	// It returns false with a nil error when the key is not present.
	Restore(ctx context.Context, key, root string, paths []string) (bool, error)

	// Save stores the given paths (relative to root) under key,
	// replacing any previous entry for the same key.
	Save(ctx context.Context, key, root string, paths []string) error
}
