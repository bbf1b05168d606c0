package ports

// Hasher defines the interface for computing content hashes.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// HashFiles computes a single deterministic hash over the files matched
	// by the given glob patterns, relative to root. Directories are hashed
	// recursively. A pattern that matches nothing is an error so a missing
	// lockfile doesn't silently produce a stable key.
	HashFiles(root string, patterns []string) (string, error)
}
