package ports

import (
	"context"
	"io"

	"go.trai.ch/lane/internal/core/domain"
)

// Executor defines the interface for running step commands.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the step's command in dir with the given environment.
	//
	// The env parameter contains environment variables in "KEY=VALUE" format,
	// typically provided by a ToolchainFactory. Stdout and stderr of the
	// command are streamed to the given writers.
	//
	// A non-zero exit status is returned as an error carrying the exit code.
	Execute(ctx context.Context, step *domain.Step, dir string, env []string, stdout, stderr io.Writer) error
}
