package app_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/internal/adapters/cache"
	"go.trai.ch/lane/internal/adapters/config"
	"go.trai.ch/lane/internal/adapters/telemetry"
	"go.trai.ch/lane/internal/app"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports/mocks"
	"go.trai.ch/lane/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type appTestMocks struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	cache    *mocks.MockCacheStore
	hasher   *mocks.MockHasher
	results  *mocks.MockResultStore
	factory  *mocks.MockToolchainFactory
	source   *mocks.MockSource
	logger   *mocks.MockLogger
}

func setupAppTest(t *testing.T) (*app.App, appTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appTestMocks{
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		cache:    mocks.NewMockCacheStore(ctrl),
		hasher:   mocks.NewMockHasher(ctrl),
		results:  mocks.NewMockResultStore(ctrl),
		factory:  mocks.NewMockToolchainFactory(ctrl),
		source:   mocks.NewMockSource(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}

	sched := scheduler.NewScheduler(
		m.executor,
		m.cache,
		m.hasher,
		m.results,
		telemetry.NewNoOpTelemetry(),
		m.factory,
		m.source,
	)
	a := app.New(m.loader, sched, nil, m.results, m.logger)
	return a, m
}

func simplePipeline(t *testing.T) *domain.Pipeline {
	t.Helper()
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(&domain.Job{
		Name:  domain.NewInternedString("test"),
		Steps: []domain.Step{{Name: "pytest", Run: []string{"pytest"}}},
	}))
	require.NoError(t, g.Validate())
	return &domain.Pipeline{Name: "ci", Root: "/tmp/root", Jobs: g}
}

func TestApp_Run_Success(t *testing.T) {
	a, m := setupAppTest(t)

	m.loader.EXPECT().Load(".").Return(simplePipeline(t), nil).Times(1)
	m.executor.EXPECT().Execute(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).Return(nil).Times(1)
	m.results.EXPECT().Put(gomock.Any()).Return(nil).Times(1)

	err := a.Run(context.Background(), []string{"test"}, app.RunOptions{})
	require.NoError(t, err)
}

func TestApp_Run_NoTargets(t *testing.T) {
	a, m := setupAppTest(t)

	m.loader.EXPECT().Load(".").Return(simplePipeline(t), nil).Times(1)

	err := a.Run(context.Background(), nil, app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestApp_Run_LoadFailure(t *testing.T) {
	a, m := setupAppTest(t)

	m.loader.EXPECT().Load(".").Return(nil, os.ErrNotExist).Times(1)

	err := a.Run(context.Background(), []string{"test"}, app.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestApp_Run_StepFailureFailsPipeline(t *testing.T) {
	a, m := setupAppTest(t)

	m.loader.EXPECT().Load(".").Return(simplePipeline(t), nil).Times(1)
	m.executor.EXPECT().Execute(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).Return(io.ErrUnexpectedEOF).Times(1)
	m.results.EXPECT().Put(gomock.Any()).Return(nil).Times(1)

	err := a.Run(context.Background(), []string{"test"}, app.RunOptions{})
	require.ErrorIs(t, err, domain.ErrPipelineFailed)
}

func TestApp_Results_FiltersByTarget(t *testing.T) {
	a, m := setupAppTest(t)

	g := domain.NewGraph()
	require.NoError(t, g.AddJob(&domain.Job{
		Name:   domain.NewInternedString("test"),
		Matrix: domain.Matrix{"python": {"3.9", "3.13"}},
		Steps:  []domain.Step{{Name: "pytest", Run: []string{"pytest"}}},
	}))
	require.NoError(t, g.AddJob(&domain.Job{
		Name:  domain.NewInternedString("lint"),
		Steps: []domain.Step{{Name: "black", Run: []string{"black"}}},
	}))
	require.NoError(t, g.Validate())
	pipeline := &domain.Pipeline{Name: "ci", Root: "/tmp/root", Jobs: g}

	m.loader.EXPECT().Load(".").Return(pipeline, nil).Times(1)
	m.results.EXPECT().Get("test (python=3.9)").Return(&domain.RunRecord{
		Instance: "test (python=3.9)", Status: "Completed", Timestamp: time.Now(),
	}, nil).Times(1)
	m.results.EXPECT().Get("test (python=3.13)").Return(nil, nil).Times(1)

	records, err := a.Results(context.Background(), []string{"test"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "test (python=3.9)", records[0].Instance)
}

func TestApp_Results_ThroughFileLoader(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("lane.yaml", []byte(`
version: 1
name: ci
jobs:
  test:
    matrix:
      python: ["3.9", "3.13"]
    steps:
      - name: pytest
        run: [pytest]
`), 0o644))

	store, err := cache.NewResultStore(domain.DefaultResultsPath())
	require.NoError(t, err)
	require.NoError(t, store.Put(domain.RunRecord{
		Instance: "test (python=3.9)", Status: "Completed", Timestamp: time.Now(),
	}))

	sched := scheduler.NewScheduler(
		mocks.NewMockExecutor(ctrl),
		mocks.NewMockCacheStore(ctrl),
		mocks.NewMockHasher(ctrl),
		store,
		telemetry.NewNoOpTelemetry(),
		mocks.NewMockToolchainFactory(ctrl),
		mocks.NewMockSource(ctrl),
	)
	a := app.New(&config.FileConfigLoader{}, sched, nil, store, mocks.NewMockLogger(ctrl))

	records, err := a.Results(context.Background(), []string{"test"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "test (python=3.9)", records[0].Instance)
}

func TestApp_Clean(t *testing.T) {
	a, m := setupAppTest(t)
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(domain.DefaultPathsCachePath(), 0o750))
	require.NoError(t, os.MkdirAll(domain.DefaultEnvCachePath(), 0o750))
	require.NoError(t, os.WriteFile(domain.DefaultResultsPath(), []byte("{}"), 0o644))

	require.NoError(t, a.Clean(context.Background(), app.CleanOptions{Cache: true, Results: true}))

	_, err := os.Stat(domain.DefaultPathsCachePath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(domain.DefaultResultsPath())
	assert.True(t, os.IsNotExist(err))

	// Tool environments were not requested and survive.
	_, err = os.Stat(domain.DefaultEnvCachePath())
	assert.NoError(t, err)
}
