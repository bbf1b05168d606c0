package domain

import (
	"slices"
	"strings"
)

// Matrix maps parameter names to the list of values each parameter takes.
// A job with a matrix runs once per combination of values.
type Matrix map[string][]string

// Expand returns every combination of matrix values as a list of assignments.
// Parameters are combined in sorted name order so the result is deterministic.
// An empty matrix expands to a single empty assignment.
func (m Matrix) Expand() []map[string]string {
	if len(m) == 0 {
		return []map[string]string{{}}
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	combinations := []map[string]string{{}}
	for _, name := range names {
		next := make([]map[string]string, 0, len(combinations)*len(m[name]))
		for _, base := range combinations {
			for _, value := range m[name] {
				entry := make(map[string]string, len(base)+1)
				for k, v := range base {
					entry[k] = v
				}
				entry[name] = value
				next = append(next, entry)
			}
		}
		combinations = next
	}

	return combinations
}

// JobInstance is a job paired with one matrix assignment. It is the unit the
// scheduler actually executes.
type JobInstance struct {
	Job    Job
	Values map[string]string
}

// ExpandJob expands a job into one instance per matrix entry.
func ExpandJob(job Job) []JobInstance {
	entries := job.Matrix.Expand()
	instances := make([]JobInstance, len(entries))
	for i, values := range entries {
		instances[i] = JobInstance{Job: job, Values: values}
	}
	return instances
}

// DisplayName returns the instance name shown in logs and telemetry,
// e.g. "test (python=3.9)". Jobs without a matrix use the bare job name.
func (i JobInstance) DisplayName() string {
	if len(i.Values) == 0 {
		return i.Job.Name.String()
	}

	names := make([]string, 0, len(i.Values))
	for name := range i.Values {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(i.Job.Name.String())
	b.WriteString(" (")
	for idx, name := range names {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(i.Values[name])
	}
	b.WriteString(")")
	return b.String()
}

// Slug returns a filesystem-safe identifier for the instance, used to key
// per-instance directories such as checkouts. Matrix instances of the same
// job get distinct slugs so concurrent entries never share a working tree,
// e.g. "test-python-3.9". Jobs without a matrix use the bare job name.
func (i JobInstance) Slug() string {
	if len(i.Values) == 0 {
		return i.Job.Name.String()
	}

	names := make([]string, 0, len(i.Values))
	for name := range i.Values {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, 0, 1+len(names))
	parts = append(parts, i.Job.Name.String())
	for _, name := range names {
		parts = append(parts, slugify(name), slugify(i.Values[name]))
	}
	return strings.Join(parts, "-")
}

func slugify(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
