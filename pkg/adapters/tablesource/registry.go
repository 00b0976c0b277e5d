// Package tablesource discovers and loads the tables a validation run reads.
package tablesource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// Source enumerates and loads tables.
type Source interface {
	// Discover lists the available tables in a deterministic order.
	Discover(ctx context.Context) ([]models.TableRef, error)
	// Load reads one table fully into memory.
	Load(ctx context.Context, ref models.TableRef) (*models.Table, error)
	// Close releases connections held by the source.
	Close() error
}

// Factory builds a Source from the dataset configuration.
type Factory func(ctx context.Context, cfg config.DatasetConfig, logger *zap.Logger) (Source, error)

// Registration describes a source type.
type Registration struct {
	Type        string // "files", "postgres", "mssql"
	DisplayName string
	Factory     Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each source package's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Type] = reg
}

// RegisteredTypes returns the registered source types, sorted.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open creates the Source registered for sourceType.
func Open(ctx context.Context, sourceType string, cfg config.DatasetConfig, logger *zap.Logger) (Source, error) {
	registryMu.RLock()
	reg, ok := registry[sourceType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", apperrors.ErrUnknownSource, sourceType, RegisteredTypes())
	}

	src, err := reg.Factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", reg.DisplayName, err)
	}
	return src, nil
}
