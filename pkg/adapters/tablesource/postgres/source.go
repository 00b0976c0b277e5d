// Package postgres reads tables from one schema of a PostgreSQL database.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/logging"
	"github.com/ekaya-inc/datacheck/pkg/models"
	"github.com/ekaya-inc/datacheck/pkg/retry"
)

// Source loads base tables of a schema through a pgx pool.
type Source struct {
	pool     *pgxpool.Pool
	schema   string
	rowLimit int
	logger   *zap.Logger
}

// New connects to PostgreSQL, retrying transient connection failures.
func New(ctx context.Context, cfg config.PostgresSourceConfig, rowLimit int, logger *zap.Logger) (*Source, error) {
	connStr := cfg.ConnectionString()
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	logger = logger.Named("postgres-source")
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %s", logging.SanitizeConnectionString(connStr), logging.SanitizeError(err))
	}

	logger.Info("Connected to PostgreSQL source",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)),
		zap.String("schema", cfg.Schema))

	return &Source{pool: pool, schema: cfg.Schema, rowLimit: rowLimit, logger: logger}, nil
}

var _ tablesource.Source = (*Source)(nil)

// Discover lists the base tables of the schema ordered by name.
func (s *Source) Discover(ctx context.Context) ([]models.TableRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan table names: %w", err)
	}

	refs := make([]models.TableRef, len(names))
	for i, name := range names {
		refs[i] = models.TableRef{
			Name:     strings.ToLower(name),
			Source:   s.schema + "." + name,
			Location: name,
		}
	}
	return refs, nil
}

// Load selects every column of the table, honouring the configured row limit.
func (s *Source) Load(ctx context.Context, ref models.TableRef) (*models.Table, error) {
	query := "SELECT * FROM " + pgx.Identifier{s.schema, ref.Location}.Sanitize()
	args := []any{}
	if s.rowLimit > 0 {
		query += " LIMIT $1"
		args = append(args, s.rowLimit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ref.Source, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := &models.Table{Name: ref.Name, Columns: make([]string, len(fields))}
	for i, f := range fields {
		table.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ref.Source, err)
		}
		row := make([]models.Cell, len(values))
		for i, v := range values {
			row[i] = tablesource.CellFromValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Source, err)
	}

	s.logger.Debug("Loaded table",
		zap.String("table", ref.Source),
		zap.Int("rows", table.RowCount()))
	return table, nil
}

// Close closes the pool.
func (s *Source) Close() error {
	s.pool.Close()
	return nil
}
