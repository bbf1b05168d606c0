package hostenv

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
)

// NodeID is the unique identifier for the toolchain factory Graft node.
const NodeID graft.ID = "adapter.hostenv.factory"

// ToolDirEnvVar overrides the versioned tool directory.
const ToolDirEnvVar = "LANE_TOOL_DIR"

func init() {
	graft.Register(graft.Node[ports.ToolchainFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ToolchainFactory, error) {
			toolsDir := os.Getenv(ToolDirEnvVar)
			if toolsDir == "" {
				toolsDir = filepath.Join(domain.DefaultLanePath(), "tools")
			}
			return NewFactory(toolsDir, domain.DefaultEnvCachePath()), nil
		},
	})
}
