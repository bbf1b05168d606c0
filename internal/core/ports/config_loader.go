// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/lane/internal/core/domain"

// ConfigLoader defines the interface for loading the pipeline declaration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the declaration from the given working directory and returns the pipeline.
	Load(cwd string) (*domain.Pipeline, error)
}
