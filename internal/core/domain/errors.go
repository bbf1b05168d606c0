package domain

import "go.trai.ch/zerr"

var (
	// ErrJobAlreadyExists is returned when attempting to add a job with a name that already exists.
	ErrJobAlreadyExists = zerr.New("job already exists")

	// ErrMissingNeeds is returned when a job needs another job that doesn't exist in the graph.
	ErrMissingNeeds = zerr.New("missing needed job")

	// ErrCycleDetected is returned when a cycle is detected in the job dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrJobNotFound is returned when a requested job is not found in the graph.
	ErrJobNotFound = zerr.New("job not found")

	// ErrNoTargetsSpecified is returned when no jobs are specified for the run command.
	ErrNoTargetsSpecified = zerr.New("no jobs specified")

	// ErrReservedJobName is returned when a job uses a reserved name (e.g. "all").
	ErrReservedJobName = zerr.New("job name 'all' is reserved")

	// ErrInvalidJobName is returned when a job name contains invalid characters.
	ErrInvalidJobName = zerr.New("job name can only contain alphanumeric characters, hyphens and underscores")

	// ErrEmptyStep is returned when a step declares no command to run.
	ErrEmptyStep = zerr.New("step has no command")

	// ErrEmptyMatrixParameter is returned when a matrix parameter declares no values.
	ErrEmptyMatrixParameter = zerr.New("matrix parameter has no values")

	// ErrInvalidCacheKey is returned when a cache key template is malformed.
	ErrInvalidCacheKey = zerr.New("invalid cache key template")

	// ErrUnknownMatrixParameter is returned when a template references a matrix parameter that isn't declared.
	ErrUnknownMatrixParameter = zerr.New("unknown matrix parameter")

	// ErrPipelineFailed is returned when the pipeline execution fails.
	ErrPipelineFailed = zerr.New("pipeline execution failed")

	// ErrStepFailed is returned when a step exits with a non-zero status.
	ErrStepFailed = zerr.New("step failed")

	// ErrCheckoutFailed is returned when materializing a source checkout fails.
	ErrCheckoutFailed = zerr.New("checkout failed")

	// ErrInvalidToolSpec is returned when a tool specification is missing the @ symbol.
	ErrInvalidToolSpec = zerr.New("invalid tool specification, expected format: name@version")

	// ErrToolNotFound is returned when a requested tool version cannot be located on the host.
	ErrToolNotFound = zerr.New("tool not found")

	// ErrEnvironmentNotHydrated is returned when an environment should have been hydrated but wasn't.
	ErrEnvironmentNotHydrated = zerr.New("environment not found in hydration cache")

	// ErrCacheRestoreFailed is returned when restoring cached paths fails.
	ErrCacheRestoreFailed = zerr.New("failed to restore cache entry")

	// ErrCacheSaveFailed is returned when saving cached paths fails.
	ErrCacheSaveFailed = zerr.New("failed to save cache entry")

	// ErrCachePathOutsideRoot is returned when a cached path escapes the pipeline root.
	ErrCachePathOutsideRoot = zerr.New("cache path is outside pipeline root")
)
