// Package app implements the application layer for lane.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.trai.ch/lane/internal/adapters/watcher"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/lane/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// debounceWindow is how long the watch loop waits after the last file system
// event before rerunning the pipeline.
const debounceWindow = 300 * time.Millisecond

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	watcher      ports.Watcher
	results      ports.ResultStore
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	w ports.Watcher,
	results ports.ResultStore,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		watcher:      w,
		results:      results,
		logger:       log,
	}
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// NoCache bypasses cache restoration; steps always execute and their
	// caches are rewritten on success.
	NoCache bool

	// Watch reruns the selected jobs whenever files under the pipeline
	// root change.
	Watch bool

	// Parallelism caps concurrently running jobs and matrix entries.
	// Zero means one per CPU.
	Parallelism int
}

// Run executes the selected pipeline jobs.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	// 1. Load the pipeline declaration
	pipeline, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	// 2. Validate targets
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	if opts.Parallelism < 1 {
		opts.Parallelism = runtime.NumCPU()
	}

	if opts.Watch {
		return a.watchLoop(ctx, pipeline, targetNames, opts)
	}

	// 3. Run the scheduler
	if err := a.scheduler.Run(ctx, pipeline, targetNames, opts.Parallelism, opts.NoCache); err != nil {
		return errors.Join(domain.ErrPipelineFailed, err)
	}

	return nil
}

// watchLoop runs the pipeline once, then reruns it on every debounced batch
// of file system changes until the context is canceled. A failing run does
// not end the loop; the next change triggers another attempt.
func (a *App) watchLoop(
	ctx context.Context,
	pipeline *domain.Pipeline,
	targetNames []string,
	opts RunOptions,
) error {
	if a.watcher == nil {
		return zerr.New("watch mode is not available")
	}

	if err := a.watcher.Start(ctx, pipeline.Root); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	runOnce := func() {
		// Reload the declaration so edits to it are picked up too.
		current, err := a.configLoader.Load(".")
		if err != nil {
			a.logger.Error(zerr.Wrap(err, "failed to reload configuration"))
			return
		}
		if err := a.scheduler.Run(ctx, current, targetNames, opts.Parallelism, opts.NoCache); err != nil {
			a.logger.Error(err)
			return
		}
		a.logger.Info("pipeline completed, watching for changes")
	}

	runOnce()

	trigger := make(chan struct{}, 1)
	debouncer := watcher.NewDebouncer(debounceWindow, func(paths []string) {
		a.logger.Info(fmt.Sprintf("%d file(s) changed, rerunning", len(paths)))
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	go func() {
		for event := range a.watcher.Events() {
			debouncer.Add(event.Path)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			runOnce()
		}
	}
}

// Results returns the stored run records for the named jobs of the current
// pipeline, expanded to their matrix instances. Jobs without a stored record
// are skipped.
func (a *App) Results(_ context.Context, targetNames []string) ([]domain.RunRecord, error) {
	pipeline, err := a.configLoader.Load(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	var records []domain.RunRecord
	for job := range pipeline.Jobs.Walk() {
		if len(targetNames) > 0 && !containsName(targetNames, job.Name.String()) {
			continue
		}
		for _, inst := range domain.ExpandJob(job) {
			record, err := a.results.Get(inst.DisplayName())
			if err != nil {
				return nil, err
			}
			if record != nil {
				records = append(records, *record)
			}
		}
	}

	return records, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name || n == "all" {
			return true
		}
	}
	return false
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Cache   bool
	Tools   bool
	Results bool
}

// Clean removes cache and state artifacts based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Cache {
		remove(domain.DefaultPathsCachePath(), "step cache")
		remove(domain.DefaultSourcesPath(), "checked out sources")
	}

	if options.Tools {
		remove(domain.DefaultEnvCachePath(), "environment cache")
	}

	if options.Results {
		remove(domain.DefaultResultsPath(), "run results")
	}

	return errs
}
