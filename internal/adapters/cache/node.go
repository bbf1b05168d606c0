package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
)

const (
	// StoreNodeID is the unique identifier for the cache store Graft node.
	StoreNodeID graft.ID = "adapter.cache.store"
	// ResultsNodeID is the unique identifier for the result store Graft node.
	ResultsNodeID graft.ID = "adapter.cache.results"
)

func init() {
	graft.Register(graft.Node[ports.CacheStore]{
		ID:        StoreNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CacheStore, error) {
			return NewStore(domain.DefaultPathsCachePath()), nil
		},
	})

	graft.Register(graft.Node[ports.ResultStore]{
		ID:        ResultsNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ResultStore, error) {
			return NewResultStore(domain.DefaultResultsPath())
		},
	})
}
