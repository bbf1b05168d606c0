package ports

import (
	"context"
	"iter"
)

// WatchEvent describes a file system change under the watched root.
type WatchEvent struct {
	Path string
}

// Watcher defines the interface for recursive file system watching.
//
//go:generate go run go.uber.org/mock/mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start begins watching the given root directory recursively.
	Start(ctx context.Context, root string) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns an iterator of file system events. The iterator ends
	// when the watcher is stopped or the context passed to Start is done.
	Events() iter.Seq[WatchEvent]
}
