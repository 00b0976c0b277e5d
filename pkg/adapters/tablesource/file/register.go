package file

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/config"
)

func init() {
	tablesource.Register(tablesource.Registration{
		Type:        config.SourceFiles,
		DisplayName: "CSV/XLSX directory",
		Factory: func(ctx context.Context, cfg config.DatasetConfig, logger *zap.Logger) (tablesource.Source, error) {
			return New(cfg.Dir, logger)
		},
	})
}
