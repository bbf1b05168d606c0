// Package scheduler implements the pipeline execution scheduler.
package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	// StatusPending indicates the job is waiting to be executed.
	StatusPending JobStatus = "Pending"
	// StatusRunning indicates the job is currently executing.
	StatusRunning JobStatus = "Running"
	// StatusCompleted indicates all instances of the job finished successfully.
	StatusCompleted JobStatus = "Completed"
	// StatusFailed indicates at least one instance of the job failed.
	StatusFailed JobStatus = "Failed"
)

// Scheduler manages the execution of jobs in the dependency graph.
type Scheduler struct {
	executor  ports.Executor
	cache     ports.CacheStore
	hasher    ports.Hasher
	results   ports.ResultStore
	telemetry ports.Telemetry
	toolchain ports.ToolchainFactory
	source    ports.Source

	mu        sync.RWMutex
	jobStatus map[domain.InternedString]JobStatus
	envCache  sync.Map // map[string][]string - EnvID -> environment variables
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	executor ports.Executor,
	cache ports.CacheStore,
	hasher ports.Hasher,
	results ports.ResultStore,
	telemetry ports.Telemetry,
	toolchain ports.ToolchainFactory,
	source ports.Source,
) *Scheduler {
	return &Scheduler{
		executor:  executor,
		cache:     cache,
		hasher:    hasher,
		results:   results,
		telemetry: telemetry,
		toolchain: toolchain,
		source:    source,
		jobStatus: make(map[domain.InternedString]JobStatus),
	}
}

// Status returns the current status of a job.
func (s *Scheduler) Status(name domain.InternedString) JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobStatus[name]
}

func (s *Scheduler) initJobStatuses(jobs []domain.InternedString) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		s.jobStatus[job] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name domain.InternedString, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobStatus[name] = status
}

// Run executes the selected jobs of the pipeline with the specified
// parallelism. If targetNames contains "all", every job runs; otherwise the
// named jobs plus their transitive needs run. Matrix entries of a job execute
// concurrently; steps within an entry are strictly sequential. If noCache is
// true, step caches are not restored (they are still saved).
func (s *Scheduler) Run(
	ctx context.Context,
	pipeline *domain.Pipeline,
	targetNames []string,
	parallelism int,
	noCache bool,
) error {
	// Explicitly validate the graph to ensure executionOrder is populated
	if err := pipeline.Jobs.Validate(); err != nil {
		return err
	}

	state, err := s.newRunState(ctx, pipeline, targetNames, parallelism, noCache)
	if err != nil {
		return err
	}

	// Phase 1: batch environment hydration. All unique toolchains are
	// resolved concurrently before any step executes.
	hydrateCtx, vertex := s.telemetry.Record(ctx, "Hydrating environments", ports.WithInternal())
	err = state.prepareEnvironments(hydrateCtx)
	vertex.Complete(err)
	if err != nil {
		return err
	}

	s.initJobStatuses(state.allJobs)

	return state.runExecutionLoop()
}

type result struct {
	job domain.InternedString
	err error
}

type schedulerRunState struct {
	pipeline    *domain.Pipeline
	inDegree    map[domain.InternedString]int
	jobs        map[domain.InternedString]domain.Job
	instances   map[domain.InternedString][]domain.JobInstance
	ready       []domain.InternedString
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	instSlots   *semaphore.Weighted
	s           *Scheduler
	allJobs     []domain.InternedString
	noCache     bool
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	pipeline *domain.Pipeline,
	targetNames []string,
	parallelism int,
	noCache bool,
) (*schedulerRunState, error) {
	jobsToRun, allJobs, err := s.resolveJobsToRun(pipeline.Jobs, targetNames)
	if err != nil {
		return nil, err
	}

	jobCount := len(jobsToRun)
	inDegree := make(map[domain.InternedString]int, jobCount)
	jobs := make(map[domain.InternedString]domain.Job, jobCount)
	instances := make(map[domain.InternedString][]domain.JobInstance, jobCount)

	for name := range jobsToRun {
		job, _ := pipeline.Jobs.GetJob(name)
		jobs[name] = job
		instances[name] = domain.ExpandJob(job)

		// Count only needs that are part of this run
		degree := 0
		for _, dep := range job.Needs {
			if jobsToRun[dep] {
				degree++
			}
		}
		inDegree[name] = degree
	}

	var ready []domain.InternedString
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	return &schedulerRunState{
		pipeline:    pipeline,
		inDegree:    inDegree,
		jobs:        jobs,
		instances:   instances,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		instSlots:   semaphore.NewWeighted(int64(parallelism)),
		s:           s,
		allJobs:     allJobs,
		noCache:     noCache,
	}, nil
}

func (s *Scheduler) resolveJobsToRun(
	graph *domain.Graph,
	targetNames []string,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	if slices.Contains(targetNames, "all") {
		jobsToRun := make(map[domain.InternedString]bool)
		allJobs := make([]domain.InternedString, 0, graph.JobCount())
		for job := range graph.Walk() {
			jobsToRun[job.Name] = true
			allJobs = append(allJobs, job.Name)
		}
		return jobsToRun, allJobs, nil
	}

	targets := make([]domain.InternedString, 0, len(targetNames))
	for _, nameStr := range targetNames {
		name := domain.NewInternedString(nameStr)
		if _, ok := graph.GetJob(name); !ok {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrJobNotFound, "cannot resolve target"), "job", name.String())
		}
		targets = append(targets, name)
	}

	return collectNeeds(graph, targets)
}

// collectNeeds gathers the targets and their transitive needs via BFS.
func collectNeeds(
	graph *domain.Graph,
	targets []domain.InternedString,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	jobsToRun := make(map[domain.InternedString]bool)
	var allJobs []domain.InternedString

	queue := make([]domain.InternedString, len(targets))
	copy(queue, targets)

	visited := make(map[domain.InternedString]bool)
	for _, t := range targets {
		visited[t] = true
	}

	for len(queue) > 0 {
		currentName := queue[0]
		queue = queue[1:]

		if !jobsToRun[currentName] {
			jobsToRun[currentName] = true
			allJobs = append(allJobs, currentName)
		}

		job, _ := graph.GetJob(currentName)
		for _, dep := range job.Needs {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	return jobsToRun, allJobs, nil
}

// prepareEnvironments resolves all required toolchains concurrently.
func (state *schedulerRunState) prepareEnvironments(ctx context.Context) error {
	// Identify unique environment IDs needed for this run. Tool specs may
	// reference matrix values, so the set is collected per instance.
	neededEnvIDs := make(map[string]map[string]string) // envID -> interpolated tools

	for _, jobInstances := range state.instances {
		for _, inst := range jobInstances {
			if len(inst.Job.Tools) == 0 {
				continue
			}
			tools, err := interpolateTools(inst.Job.Tools, inst.Values)
			if err != nil {
				return zerr.With(err, "instance", inst.DisplayName())
			}
			neededEnvIDs[domain.GenerateEnvID(tools)] = tools
		}
	}

	var envsToResolve []struct {
		id    string
		tools map[string]string
	}
	for id, tools := range neededEnvIDs {
		if _, cached := state.s.envCache.Load(id); !cached {
			envsToResolve = append(envsToResolve, struct {
				id    string
				tools map[string]string
			}{id, tools})
		}
	}

	if len(envsToResolve) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, item := range envsToResolve {
		g.Go(func() error {
			env, err := state.s.toolchain.GetEnvironment(ctx, item.tools)
			if err != nil {
				return zerr.Wrap(err, "failed to hydrate environment")
			}
			state.s.envCache.Store(item.id, env)
			return nil
		})
	}

	return g.Wait()
}

func interpolateTools(tools, values map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(tools))
	for alias, spec := range tools {
		interpolated, err := domain.InterpolateMatrix(spec, values)
		if err != nil {
			return nil, zerr.With(err, "tool", alias)
		}
		resolved[alias] = interpolated
	}
	return resolved, nil
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		jobName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(jobName, StatusRunning)

		go func(name domain.InternedString) {
			state.resultsCh <- result{job: name, err: state.executeJob(name)}
		}(jobName)
	}
}

// executeJob runs all matrix instances of a job concurrently. The first
// failing instance cancels its siblings (fail-fast). Instance slots are
// shared across jobs, so total concurrency stays within the requested
// parallelism even while several jobs are in flight.
func (state *schedulerRunState) executeJob(name domain.InternedString) error {
	g, ctx := errgroup.WithContext(state.ctx)

	for _, inst := range state.instances[name] {
		g.Go(func() error {
			if err := state.instSlots.Acquire(ctx, 1); err != nil {
				return err
			}
			defer state.instSlots.Release(1)
			return state.executeInstance(ctx, inst)
		})
	}

	return g.Wait()
}

func (state *schedulerRunState) executeInstance(ctx context.Context, inst domain.JobInstance) error {
	ctx, vertex := state.s.telemetry.Record(ctx, inst.DisplayName())

	record := domain.RunRecord{
		Instance:  inst.DisplayName(),
		Job:       inst.Job.Name.String(),
		Timestamp: time.Now(),
	}

	err := state.runInstance(ctx, inst, vertex, &record)
	if err != nil {
		record.Status = string(StatusFailed)
	} else {
		record.Status = string(StatusCompleted)
	}

	if putErr := state.s.results.Put(record); putErr != nil {
		// A result store failure must not fail the run itself.
		vertex.Log(domain.LogLevelWarn, "failed to persist run record: "+putErr.Error())
	}

	vertex.Complete(err)
	return err
}

//nolint:cyclop // step loop with cache gating is inherently branchy
func (state *schedulerRunState) runInstance(
	ctx context.Context,
	inst domain.JobInstance,
	vertex ports.Vertex,
	record *domain.RunRecord,
) error {
	workdir, err := state.materializeWorkdir(ctx, inst, vertex)
	if err != nil {
		return err
	}

	env, err := state.instanceEnvironment(inst)
	if err != nil {
		return err
	}

	for _, step := range inst.Job.Steps {
		outcome, err := state.runStep(ctx, inst, step, workdir, env)
		record.Steps = append(record.Steps, outcome)
		if err != nil {
			// A non-zero exit fails the instance; remaining steps are
			// not run.
			return err
		}
	}

	return nil
}

// materializeWorkdir resolves the instance working directory, performing the
// declared checkout first if there is one.
func (state *schedulerRunState) materializeWorkdir(
	ctx context.Context,
	inst domain.JobInstance,
	vertex ports.Vertex,
) (string, error) {
	root := state.pipeline.Root

	if inst.Job.Checkout != nil && inst.Job.Checkout.Repository != "" {
		// Keyed per instance: concurrent matrix entries must not share a
		// working tree.
		dir := filepath.Join(root, domain.DefaultSourcesPath(), inst.Slug())
		vertex.Log(domain.LogLevelInfo, "checking out "+inst.Job.Checkout.Repository)
		if err := state.s.source.Checkout(ctx, inst.Job.Checkout, dir); err != nil {
			return "", err
		}
		root = dir
	}

	if wd := inst.Job.WorkingDir.String(); wd != "" {
		root = filepath.Join(root, wd)
	}

	return root, nil
}

// instanceEnvironment returns the hydrated toolchain environment for the
// instance, merged with the job-level environment map.
func (state *schedulerRunState) instanceEnvironment(inst domain.JobInstance) ([]string, error) {
	var env []string

	if len(inst.Job.Tools) > 0 {
		tools, err := interpolateTools(inst.Job.Tools, inst.Values)
		if err != nil {
			return nil, err
		}

		envID := domain.GenerateEnvID(tools)
		hydrated, ok := state.s.envCache.Load(envID)
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrEnvironmentNotHydrated, "missing environment"), "env_id", envID)
		}
		env = append(env, hydrated.([]string)...)
	}

	for k, v := range inst.Job.Environment {
		interpolated, err := domain.InterpolateMatrix(v, inst.Values)
		if err != nil {
			return nil, zerr.With(err, "variable", k)
		}
		env = append(env, k+"="+interpolated)
	}

	return env, nil
}

func (state *schedulerRunState) runStep(
	ctx context.Context,
	inst domain.JobInstance,
	step domain.Step,
	workdir string,
	env []string,
) (domain.StepOutcome, error) {
	started := time.Now()
	outcome := domain.StepOutcome{Name: step.Name}

	stepCtx, vertex := state.s.telemetry.Record(ctx, inst.DisplayName()+": "+step.Name)

	interpolated, err := interpolateStep(step, inst.Values)
	if err != nil {
		vertex.Complete(err)
		return outcome, err
	}

	// Cache gate: on a key hit the cached paths are restored and the
	// command is skipped entirely.
	var cacheKey string
	if step.Cache != nil {
		cacheKey, err = domain.ExpandCacheKey(step.Cache.Key, inst.Values, func(patterns []string) (string, error) {
			return state.s.hasher.HashFiles(workdir, patterns)
		})
		if err != nil {
			vertex.Complete(err)
			return outcome, err
		}
		outcome.CacheKey = cacheKey

		if !state.noCache {
			hit, err := state.s.cache.Restore(stepCtx, cacheKey, workdir, step.Cache.Paths)
			if err != nil {
				vertex.Complete(err)
				return outcome, err
			}
			if hit {
				outcome.Cached = true
				outcome.Duration = time.Since(started)
				vertex.Cached()
				vertex.Complete(nil)
				return outcome, nil
			}
		}
	}

	stepDir := workdir
	if interpolated.WorkingDir != "" {
		stepDir = filepath.Join(workdir, interpolated.WorkingDir)
	}

	err = state.s.executor.Execute(stepCtx, &interpolated, stepDir, env, vertex.Stdout(), vertex.Stderr())
	if err != nil {
		outcome.ExitCode = exitCodeOf(err)
		outcome.Duration = time.Since(started)
		vertex.Complete(err)
		return outcome, err
	}

	if step.Cache != nil {
		if err := state.s.cache.Save(stepCtx, cacheKey, workdir, step.Cache.Paths); err != nil {
			// A failed save degrades the next run to a miss; it doesn't
			// fail this one.
			vertex.Log(domain.LogLevelWarn, "failed to save cache entry: "+err.Error())
		}
	}

	outcome.Duration = time.Since(started)
	vertex.Complete(nil)
	return outcome, nil
}

// interpolateStep returns a copy of the step with matrix values substituted
// into the command, environment and working directory.
func interpolateStep(step domain.Step, values map[string]string) (domain.Step, error) {
	out := step

	out.Run = make([]string, len(step.Run))
	for i, arg := range step.Run {
		interpolated, err := domain.InterpolateMatrix(arg, values)
		if err != nil {
			return domain.Step{}, zerr.With(err, "step", step.Name)
		}
		out.Run[i] = interpolated
	}

	if len(step.Environment) > 0 {
		out.Environment = make(map[string]string, len(step.Environment))
		for k, v := range step.Environment {
			interpolated, err := domain.InterpolateMatrix(v, values)
			if err != nil {
				return domain.Step{}, zerr.With(err, "step", step.Name)
			}
			out.Environment[k] = interpolated
		}
	}

	var err error
	out.WorkingDir, err = domain.InterpolateMatrix(step.WorkingDir, values)
	if err != nil {
		return domain.Step{}, zerr.With(err, "step", step.Name)
	}

	return out, nil
}

func exitCodeOf(err error) int {
	type coder interface{ ExitCode() int }
	var c coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return -1
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(zerr.Wrap(res.err, "job execution failed"), "job", res.job.String())
		state.errs = errors.Join(state.errs, enhancedErr)
		state.s.updateStatus(res.job, StatusFailed)
		return
	}

	state.s.updateStatus(res.job, StatusCompleted)
	for _, dep := range state.pipeline.Jobs.Dependents(res.job) {
		// Only consider dependents that are part of the current run
		if _, ok := state.jobs[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}
