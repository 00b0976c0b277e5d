package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/config"
)

func init() {
	tablesource.Register(tablesource.Registration{
		Type:        config.SourceMSSQL,
		DisplayName: "Microsoft SQL Server",
		Factory: func(ctx context.Context, cfg config.DatasetConfig, logger *zap.Logger) (tablesource.Source, error) {
			return New(ctx, cfg.MSSQL, cfg.RowLimit, logger)
		},
	})
}
