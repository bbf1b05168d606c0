package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of jobs.
type Graph struct {
	jobs           map[InternedString]Job
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		jobs: make(map[InternedString]Job),
	}
}

// AddJob adds a job to the graph.
// It returns an error if a job with the same name already exists.
func (g *Graph) AddJob(j *Job) error {
	if _, exists := g.jobs[j.Name]; exists {
		return zerr.With(zerr.Wrap(ErrJobAlreadyExists, "cannot add job"), "job", j.Name.String())
	}
	g.jobs[j.Name] = *j
	return nil
}

// GetJob returns the job with the given name.
func (g *Graph) GetJob(name InternedString) (Job, bool) {
	j, ok := g.jobs[name]
	return j, ok
}

// JobCount returns the number of jobs in the graph.
func (g *Graph) JobCount() int {
	return len(g.jobs)
}

// Validate checks for cycles in the graph using a topological sort over the
// `needs` edges. It populates the execution order if successful.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.jobs))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		job, exists := g.jobs[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingNeeds, "invalid graph"), "needs", u.String())
		}

		for _, dep := range job.Needs {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	// Iterate in sorted name order so disconnected components are visited
	// deterministically.
	names := make([]InternedString, 0, len(g.jobs))
	for name := range g.jobs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(zerr.Wrap(ErrCycleDetected, "invalid graph"), "cycle", cyclePath)
}

// Walk returns an iterator that yields jobs in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Job] {
	return func(yield func(Job) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.jobs[name]) {
				return
			}
		}
	}
}

// Dependents returns the names of jobs that directly need the given job.
func (g *Graph) Dependents(name InternedString) []InternedString {
	var dependents []InternedString
	for _, order := range g.executionOrder {
		job := g.jobs[order]
		if slices.Contains(job.Needs, name) {
			dependents = append(dependents, job.Name)
		}
	}
	return dependents
}
