package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/internal/core/domain"
)

func job(name string, needs ...string) *domain.Job {
	interned := make([]domain.InternedString, len(needs))
	for i, n := range needs {
		interned[i] = domain.NewInternedString(n)
	}
	return &domain.Job{
		Name:  domain.NewInternedString(name),
		Needs: interned,
		Steps: []domain.Step{{Name: "run", Run: []string{"echo", name}}},
	}
}

func TestGraph_Cycle(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*domain.Graph)
		wantErr     bool
		errContains string
	}{
		{
			name: "Self Cycle A->A",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "A"))
			},
			wantErr:     true,
			errContains: "cycle detected",
		},
		{
			name: "Two Node Cycle A->B->A",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "B"))
				_ = g.AddJob(job("B", "A"))
			},
			wantErr:     true,
			errContains: "cycle detected",
		},
		{
			name: "Three Node Cycle A->B->C->A",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "B"))
				_ = g.AddJob(job("B", "C"))
				_ = g.AddJob(job("C", "A"))
			},
			wantErr:     true,
			errContains: "cycle detected",
		},
		{
			name: "No Cycle A->B->C",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "B"))
				_ = g.AddJob(job("B", "C"))
				_ = g.AddJob(job("C"))
			},
			wantErr: false,
		},
		{
			name: "Disconnected Components No Cycle",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "B"))
				_ = g.AddJob(job("B"))
				_ = g.AddJob(job("C", "D"))
				_ = g.AddJob(job("D"))
			},
			wantErr: false,
		},
		{
			name: "Missing Need",
			setup: func(g *domain.Graph) {
				_ = g.AddJob(job("A", "ghost"))
			},
			wantErr:     true,
			errContains: "missing needed job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.NewGraph()
			tt.setup(g)

			err := g.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGraph_AddJob_Duplicate(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(job("lint")))

	err := g.AddJob(job("lint"))
	require.ErrorIs(t, err, domain.ErrJobAlreadyExists)
}

func TestGraph_Walk_DependenciesFirst(t *testing.T) {
	// test -> build -> checkout; lint -> checkout
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(job("test", "build")))
	require.NoError(t, g.AddJob(job("build", "checkout")))
	require.NoError(t, g.AddJob(job("lint", "checkout")))
	require.NoError(t, g.AddJob(job("checkout")))
	require.NoError(t, g.Validate())

	position := make(map[string]int)
	i := 0
	for j := range g.Walk() {
		position[j.Name.String()] = i
		i++
	}

	require.Len(t, position, 4)
	assert.Less(t, position["checkout"], position["build"])
	assert.Less(t, position["build"], position["test"])
	assert.Less(t, position["checkout"], position["lint"])
}

func TestGraph_Dependents(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(job("deploy", "test", "lint")))
	require.NoError(t, g.AddJob(job("test", "build")))
	require.NoError(t, g.AddJob(job("lint")))
	require.NoError(t, g.AddJob(job("build")))
	require.NoError(t, g.Validate())

	deps := g.Dependents(domain.NewInternedString("test"))
	require.Len(t, deps, 1)
	assert.Equal(t, "deploy", deps[0].String())

	assert.Empty(t, g.Dependents(domain.NewInternedString("deploy")))
}
