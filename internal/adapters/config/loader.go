// Package config provides the pipeline configuration loader for lane.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var jobNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	Filename string
}

// Load reads the declaration from the given working directory.
func (l *FileConfigLoader) Load(cwd string) (*domain.Pipeline, error) {
	filename := l.Filename
	if filename == "" {
		filename = domain.LaneFileName
	}
	return Load(filepath.Join(cwd, filename))
}

// Load reads a configuration file from the given path and returns a domain.Pipeline.
func Load(path string) (*domain.Pipeline, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var lanefile Lanefile
	if err := yaml.Unmarshal(data, &lanefile); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	root := lanefile.Root
	if root == "" {
		root = filepath.Dir(path)
	}

	g := domain.NewGraph()

	// First pass: collect all job names to verify needs later
	jobNames := make(map[string]bool, len(lanefile.Jobs))
	for name := range lanefile.Jobs {
		jobNames[name] = true
	}

	// Second pass: validate, convert and add to graph
	for name, dto := range lanefile.Jobs {
		job, err := convertJob(name, dto, jobNames)
		if err != nil {
			return nil, err
		}
		if err := g.AddJob(job); err != nil {
			return nil, err
		}
	}

	// Populate the execution order up front. Walk yields nothing on an
	// unvalidated graph, and callers other than the scheduler rely on it.
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &domain.Pipeline{
		Name: lanefile.Name,
		Root: root,
		Jobs: g,
	}, nil
}

func convertJob(name string, dto *JobDTO, jobNames map[string]bool) (*domain.Job, error) {
	if name == "all" {
		return nil, zerr.With(zerr.Wrap(domain.ErrReservedJobName, "invalid job"), "job", name)
	}
	if !jobNameRe.MatchString(name) {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidJobName, "invalid job"), "job", name)
	}

	for _, dep := range dto.Needs {
		if !jobNames[dep] {
			needsErr := zerr.With(zerr.Wrap(domain.ErrMissingNeeds, "invalid job"), "job", name)
			return nil, zerr.With(needsErr, "needs", dep)
		}
	}

	matrix := domain.Matrix(dto.Matrix)
	for param, values := range matrix {
		if len(values) == 0 {
			matrixErr := zerr.With(zerr.Wrap(domain.ErrEmptyMatrixParameter, "invalid job"), "job", name)
			return nil, zerr.With(matrixErr, "parameter", param)
		}
	}

	steps, err := convertSteps(name, dto, matrix)
	if err != nil {
		return nil, err
	}

	for alias, spec := range dto.Tools {
		if err := validateTemplate(spec, matrix); err != nil {
			return nil, zerr.With(zerr.With(err, "job", name), "tool", alias)
		}
	}

	var checkout *domain.Checkout
	if dto.Checkout != nil {
		checkout = &domain.Checkout{
			Repository: dto.Checkout.Repository,
			Ref:        dto.Checkout.Ref,
		}
	}

	return &domain.Job{
		Name:        domain.NewInternedString(name),
		Matrix:      matrix,
		Checkout:    checkout,
		Tools:       dto.Tools,
		Environment: dto.Environment,
		WorkingDir:  domain.NewInternedString(dto.WorkingDir),
		Needs:       internStrings(dto.Needs),
		Steps:       steps,
	}, nil
}

func convertSteps(jobName string, dto *JobDTO, matrix domain.Matrix) ([]domain.Step, error) {
	steps := make([]domain.Step, 0, len(dto.Steps))
	for _, stepDTO := range dto.Steps {
		if len(stepDTO.Run) == 0 {
			stepErr := zerr.With(zerr.Wrap(domain.ErrEmptyStep, "invalid step"), "job", jobName)
			return nil, zerr.With(stepErr, "step", stepDTO.Name)
		}

		var cache *domain.StepCache
		if stepDTO.Cache != nil {
			if stepDTO.Cache.Key == "" || len(stepDTO.Cache.Paths) == 0 {
				cacheErr := zerr.With(zerr.Wrap(domain.ErrInvalidCacheKey, "invalid step"), "job", jobName)
				return nil, zerr.With(cacheErr, "step", stepDTO.Name)
			}
			if err := validateTemplate(stepDTO.Cache.Key, matrix); err != nil {
				return nil, zerr.With(zerr.With(err, "job", jobName), "step", stepDTO.Name)
			}
			cache = &domain.StepCache{
				Key:   stepDTO.Cache.Key,
				Paths: stepDTO.Cache.Paths,
			}
		}

		stepName := stepDTO.Name
		if stepName == "" {
			stepName = stepDTO.Run[0]
		}

		steps = append(steps, domain.Step{
			Name:        stepName,
			Run:         stepDTO.Run,
			Environment: stepDTO.Environment,
			WorkingDir:  stepDTO.WorkingDir,
			Cache:       cache,
		})
	}
	return steps, nil
}

// validateTemplate checks that every ${...} token in the template is well
// formed and that matrix references name a declared parameter. hashFiles
// patterns are resolved at run time, only their presence is checked here.
func validateTemplate(template string, matrix domain.Matrix) error {
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			return nil
		}
		rest = rest[start+2:]

		end := strings.Index(rest, "}")
		if end < 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidCacheKey, "unterminated token"), "template", template)
		}
		token := rest[:end]
		rest = rest[end+1:]

		switch {
		case strings.HasPrefix(token, "matrix."):
			param := strings.TrimPrefix(token, "matrix.")
			if _, ok := matrix[param]; !ok {
				return zerr.With(zerr.Wrap(domain.ErrUnknownMatrixParameter, "invalid template"), "parameter", param)
			}
		case strings.HasPrefix(token, "hashFiles:"):
			if strings.TrimSpace(strings.TrimPrefix(token, "hashFiles:")) == "" {
				return zerr.With(zerr.Wrap(domain.ErrInvalidCacheKey, "empty hashFiles pattern"), "template", template)
			}
		default:
			return zerr.With(zerr.Wrap(domain.ErrInvalidCacheKey, "unknown token"), "token", token)
		}
	}
}

func internStrings(strs []string) []domain.InternedString {
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(s)
	}
	return res
}
