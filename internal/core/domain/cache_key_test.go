package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lane/internal/core/domain"
)

func staticHash(hash string) domain.HashFilesFunc {
	return func(_ []string) (string, error) {
		return hash, nil
	}
}

func TestExpandCacheKey(t *testing.T) {
	values := map[string]string{"python": "3.9", "django": "4.2"}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  error
	}{
		{
			name:     "Literal Only",
			template: "deps",
			want:     "deps",
		},
		{
			name:     "Matrix Token",
			template: "venv-${matrix.python}",
			want:     "venv-3.9",
		},
		{
			name:     "Matrix And HashFiles",
			template: "venv-${matrix.python}-${hashFiles:poetry.lock}",
			want:     "venv-3.9-abc123",
		},
		{
			name:     "Multiple Matrix Tokens",
			template: "${matrix.python}-${matrix.django}",
			want:     "3.9-4.2",
		},
		{
			name:     "Unknown Parameter",
			template: "venv-${matrix.ruby}",
			wantErr:  domain.ErrUnknownMatrixParameter,
		},
		{
			name:     "Unclosed Token",
			template: "venv-${matrix.python",
			wantErr:  domain.ErrInvalidCacheKey,
		},
		{
			name:     "Unknown Token Kind",
			template: "venv-${env.HOME}",
			wantErr:  domain.ErrInvalidCacheKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ExpandCacheKey(tt.template, values, staticHash("abc123"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandCacheKey_HashFilesPatterns(t *testing.T) {
	var captured []string
	hashFiles := func(patterns []string) (string, error) {
		captured = patterns
		return "h", nil
	}

	_, err := domain.ExpandCacheKey("${hashFiles:poetry.lock, requirements.txt}", nil, hashFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{"poetry.lock", "requirements.txt"}, captured)
}

func TestInterpolateMatrix(t *testing.T) {
	values := map[string]string{"python": "3.13"}

	got, err := domain.InterpolateMatrix("python@${matrix.python}", values)
	require.NoError(t, err)
	assert.Equal(t, "python@3.13", got)

	// No tokens passes through untouched.
	got, err = domain.InterpolateMatrix("pytest", values)
	require.NoError(t, err)
	assert.Equal(t, "pytest", got)

	_, err = domain.InterpolateMatrix("${matrix.missing}", values)
	require.ErrorIs(t, err, domain.ErrUnknownMatrixParameter)
}

func TestGenerateEnvID(t *testing.T) {
	a := domain.GenerateEnvID(map[string]string{"python": "python@3.9", "poetry": "poetry@1.8"})
	b := domain.GenerateEnvID(map[string]string{"poetry": "poetry@1.8", "python": "python@3.9"})
	c := domain.GenerateEnvID(map[string]string{"python": "python@3.13"})

	// Insertion order must not matter.
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
