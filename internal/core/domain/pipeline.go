// Package domain contains the core domain models for the pipeline job graph.
package domain

// Pipeline represents a fully loaded pipeline declaration.
type Pipeline struct {
	// Name is the pipeline name as declared in the configuration.
	Name string

	// Root is the directory the pipeline was loaded from. All relative
	// paths (inputs, cache paths, working directories) resolve against it.
	Root string

	// Jobs is the dependency graph of jobs.
	Jobs *Graph
}

// Job represents a named sequence of steps, executed once per matrix entry.
// It uses InternedString for fields that are frequently repeated to save memory.
type Job struct {
	Name       InternedString
	Matrix     Matrix
	Checkout   *Checkout
	Tools      map[string]string
	Environment map[string]string
	WorkingDir InternedString
	Needs      []InternedString
	Steps      []Step
}

// Step represents a single external command invocation within a job.
// Steps run strictly in declaration order; a non-zero exit status fails the
// job instance and skips the remaining steps.
type Step struct {
	Name        string
	Run         []string
	Environment map[string]string
	WorkingDir  string
	Cache       *StepCache
}

// StepCache declares a cache gate for a step. Key is a template expanded per
// matrix entry (see ExpandCacheKey); Paths are the directories or files saved
// on miss and restored on hit, relative to the job working directory.
type StepCache struct {
	Key   string
	Paths []string
}

// Checkout declares the source to materialize before a job's steps run.
// An empty Repository means the job runs against the current working tree.
type Checkout struct {
	Repository string
	Ref        string
}
