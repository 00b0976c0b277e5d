package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

func TestMetricsStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "deequ_results")
	store := NewMetricsStore(dir, zap.NewNop())

	assert.False(t, store.DirExists())

	in := []models.Measurement{
		models.NewMeasurement("Size()", 1000),
		models.NewMeasurement("Completeness(first_name)", 0.98),
	}
	path, err := store.Save(ctx, "employees", in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "employees_deequ_metrics.json"), path)
	assert.True(t, store.DirExists())

	has, err := store.Has(ctx, "employees")
	require.NoError(t, err)
	assert.True(t, has)

	out, err := store.Load(ctx, "employees")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Size()", out[0].Analyzer)

	decoded, err := out[1].Decode()
	require.NoError(t, err)
	assert.Equal(t, models.KindCompleteness, decoded.Kind)
	assert.Equal(t, "first_name", decoded.Column)
	assert.InDelta(t, 0.98, decoded.Value, 1e-12)
}

func TestMetricsStore_MissingFile(t *testing.T) {
	ctx := context.Background()
	store := NewMetricsStore(t.TempDir(), zap.NewNop())

	has, err := store.Has(ctx, "salaries")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.Load(ctx, "salaries")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMetricsStore_AcceptedFormats(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "metrics document",
			content:  `{"metrics":[{"analyzer":"Size()","value":10},{"analyzer":"Minimum(salary)","value":"38000"}]}`,
			expected: []string{"Size()", "Minimum(salary)"},
		},
		{
			name:     "bare array",
			content:  `[{"analyzer":"Uniqueness(emp_no)","value":1.0}]`,
			expected: []string{"Uniqueness(emp_no)"},
		},
		{
			name:     "repository form",
			content:  `{"metrics":[{"entity":"Dataset","instance":"*","name":"Size","value":5},{"entity":"Column","instance":"gender","name":"Completeness","value":1}]}`,
			expected: []string{"Size()", "Completeness(gender)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, MetricsFileName("t")), []byte(tt.content), 0644))

			ms, err := NewMetricsStore(dir, zap.NewNop()).Load(context.Background(), "t")
			require.NoError(t, err)

			names := make([]string, len(ms))
			for i, m := range ms {
				names[i] = m.AnalyzerName()
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestMetricsStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetricsFileName("dept")), []byte("{not json"), 0644))

	_, err := NewMetricsStore(dir, zap.NewNop()).Load(context.Background(), "dept")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMetricsStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMetricsStore(t.TempDir(), zap.NewNop())
	_, err := store.Load(ctx, "employees")
	assert.ErrorIs(t, err, context.Canceled)
}
