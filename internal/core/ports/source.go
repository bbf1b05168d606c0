package ports

import (
	"context"

	"go.trai.ch/lane/internal/core/domain"
)

// Source materializes a declared checkout into a directory before a job runs.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type Source interface {
	// Checkout ensures dir contains the repository at the declared ref.
	// A fresh directory is cloned; an existing one is fetched and reset.
	Checkout(ctx context.Context, checkout *domain.Checkout, dir string) error
}
