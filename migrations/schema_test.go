//go:build integration

package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/datacheck/pkg/testhelpers"
)

// Test_001_ValidationRuns verifies the runs table and its pipeline_type constraint.
func Test_001_ValidationRuns(t *testing.T) {
	db := testhelpers.GetReportDB(t)
	ctx := context.Background()

	var dataType string
	err := db.DB.Pool.QueryRow(ctx, `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_name = 'validation_runs'
		AND column_name = 'summary'
	`).Scan(&dataType)
	require.NoError(t, err)
	assert.Equal(t, "jsonb", dataType)

	_, err = db.DB.Pool.Exec(ctx, `
		INSERT INTO validation_runs (id, pipeline_type, run_at)
		VALUES (gen_random_uuid(), 'nightly', now())
	`)
	assert.Error(t, err, "pipeline_type outside static/combined should be rejected")
}

// Test_002_ValidationReports verifies one report per table per run.
func Test_002_ValidationReports(t *testing.T) {
	db := testhelpers.GetReportDB(t)
	ctx := context.Background()

	insert := `
		INSERT INTO validation_reports (id, run_id, table_name, source, pipeline_type, rule_set,
			validated_at, row_count, column_count, validation_success, evaluated_rules, unsuccessful_rules, report)
		VALUES (gen_random_uuid(), '00000000-0000-0000-0000-00000000f002', 'titles', 'titles.csv', 'static',
			'titles_suite', now(), 1, 4, true, 3, 0, '{}'::jsonb)`

	_, err := db.DB.Pool.Exec(ctx, insert)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.DB.Pool.Exec(context.Background(),
			`DELETE FROM validation_reports WHERE run_id = '00000000-0000-0000-0000-00000000f002'`)
	})

	_, err = db.DB.Pool.Exec(ctx, insert)
	assert.Error(t, err, "duplicate (run_id, table_name) should be rejected")

	var indexExists bool
	err = db.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE tablename = 'validation_reports'
			AND indexname = 'idx_validation_reports_failed'
		)`).Scan(&indexExists)
	require.NoError(t, err)
	assert.True(t, indexExists)
}
