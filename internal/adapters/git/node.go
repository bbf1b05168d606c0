package git

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lane/internal/adapters/logger"
	"go.trai.ch/lane/internal/core/ports"
)

// NodeID is the unique identifier for the git source Graft node.
const NodeID graft.ID = "adapter.git.source"

func init() {
	graft.Register(graft.Node[ports.Source]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Source, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewSource(log), nil
		},
	})
}
