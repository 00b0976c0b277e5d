//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/database"
	"github.com/ekaya-inc/datacheck/pkg/testhelpers"
)

func TestMigrate_Idempotent(t *testing.T) {
	reportDB := testhelpers.GetReportDB(t)

	// Already applied by the helper; a second run must be a no-op.
	require.NoError(t, database.Migrate(reportDB.ConnStr, zap.NewNop()))

	var version int
	var dirty bool
	err := reportDB.DB.Pool.QueryRow(context.Background(),
		`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.False(t, dirty)
}
