package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/config"
)

func init() {
	tablesource.Register(tablesource.Registration{
		Type:        config.SourcePostgres,
		DisplayName: "PostgreSQL",
		Factory: func(ctx context.Context, cfg config.DatasetConfig, logger *zap.Logger) (tablesource.Source, error) {
			return New(ctx, cfg.Postgres, cfg.RowLimit, logger)
		},
	})
}
