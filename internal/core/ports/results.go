package ports

import "go.trai.ch/lane/internal/core/domain"

// ResultStore defines the interface for storing and retrieving run records.
//
//go:generate go run go.uber.org/mock/mockgen -source=results.go -destination=mocks/mock_results.go -package=mocks
type ResultStore interface {
	// Get retrieves the run record for a given instance name.
	// Returns nil, nil if not found.
	Get(instance string) (*domain.RunRecord, error)

	// Put stores the run record.
	Put(record domain.RunRecord) error
}
