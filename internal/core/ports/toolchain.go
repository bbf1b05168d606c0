package ports

import "context"

// ToolchainFactory provisions execution environments from tool specifications.
//
// Implementations are responsible for:
//   - Resolving tool specifications (e.g. "python@3.9") to concrete
//     interpreter installations on the host
//   - Constructing environment variables (PATH and friends) so the requested
//     versions win over whatever the ambient shell provides
//
//go:generate go run go.uber.org/mock/mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type ToolchainFactory interface {
	// GetEnvironment constructs an environment from a set of tools.
	//
	// The tools map contains alias->spec pairs (e.g. "python" -> "python@3.9").
	// Returns environment variables as "KEY=VALUE" strings suitable for
	// process execution.
	//
	// Returns an error if any tool cannot be located.
	GetEnvironment(ctx context.Context, tools map[string]string) ([]string, error)
}
