package commands_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/cmd/lane/commands"
	"go.trai.ch/lane/internal/adapters/telemetry"
	"go.trai.ch/lane/internal/app"
	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports/mocks"
	"go.trai.ch/lane/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type cliTestMocks struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	cache    *mocks.MockCacheStore
	hasher   *mocks.MockHasher
	results  *mocks.MockResultStore
	factory  *mocks.MockToolchainFactory
	source   *mocks.MockSource
	logger   *mocks.MockLogger
}

func setupCLI(t *testing.T) (*commands.CLI, cliTestMocks, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := cliTestMocks{
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

	cli := commands.New(a)
	out := &bytes.Buffer{}
	cli.SetOutput(out, out)
	return cli, m, out
}

func singleJobPipeline(t *testing.T) *domain.Pipeline {
	t.Helper()
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(&domain.Job{
		Name:  domain.NewInternedString("test"),
		Steps: []domain.Step{{Name: "pytest", Run: []string{"pytest"}}},
	}))
	require.NoError(t, g.Validate())
	return &domain.Pipeline{Name: "ci", Root: "/tmp/root", Jobs: g}
}

func TestRun_Success(t *testing.T) {
	cli, m, _ := setupCLI(t)

	m.loader.EXPECT().Load(".").Return(singleJobPipeline(t), nil).Times(1)
	m.executor.EXPECT().Execute(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).Return(nil).Times(1)
	m.results.EXPECT().Put(gomock.Any()).Return(nil).Times(1)

	cli.SetArgs([]string{"run", "test"})
	err := cli.Execute(context.Background())
	require.NoError(t, err)
}

func TestRun_NoTargetsShowsHelp(t *testing.T) {
	cli, _, out := setupCLI(t)

	cli.SetArgs([]string{"run"})
	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_UnknownJob(t *testing.T) {
	cli, m, _ := setupCLI(t)

	m.loader.EXPECT().Load(".").Return(singleJobPipeline(t), nil).Times(1)

	cli.SetArgs([]string{"run", "ghost"})
	err := cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestResults_Empty(t *testing.T) {
	cli, m, out := setupCLI(t)

	m.loader.EXPECT().Load(".").Return(singleJobPipeline(t), nil).Times(1)
	m.results.EXPECT().Get("test").Return(nil, nil).Times(1)

	cli.SetArgs([]string{"results"})
	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no stored results")
}

func TestVersion(t *testing.T) {
	cli, _, out := setupCLI(t)

	cli.SetArgs([]string{"version"})
	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "lane version")
}

func TestRoot_Help(t *testing.T) {
	cli, _, out := setupCLI(t)

	cli.SetArgs([]string{"--help"})
	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "lane")
}
