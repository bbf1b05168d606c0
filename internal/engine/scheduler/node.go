package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lane/internal/adapters/cache"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/adapters/git"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/adapters/hostenv"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lane/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			cache.StoreNodeID,
			cache.ResultsNodeID,
			fs.HasherNodeID,
			telemetry.NodeID,
			hostenv.NodeID,
			git.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}

			results, err := graft.Dep[ports.ResultStore](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			toolchain, err := graft.Dep[ports.ToolchainFactory](ctx)
			if err != nil {
				return nil, err
			}

			source, err := graft.Dep[ports.Source](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(
				executor,
				store,
				hasher,
				results,
				tel,
				toolchain,
				source,
			), nil
		},
	})
}
