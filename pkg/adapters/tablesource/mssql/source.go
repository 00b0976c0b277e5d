// Package mssql reads tables from one schema of a SQL Server database.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/logging"
	"github.com/ekaya-inc/datacheck/pkg/models"
	"github.com/ekaya-inc/datacheck/pkg/retry"
)

// Source loads base tables of a schema through database/sql.
type Source struct {
	db       *sql.DB
	schema   string
	rowLimit int
	logger   *zap.Logger
}

// New opens a SQL Server connection and waits until it answers a ping.
func New(ctx context.Context, cfg config.MSSQLSourceConfig, rowLimit int, logger *zap.Logger) (*Source, error) {
	connStr := cfg.ConnectionString()
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %s", logging.SanitizeError(err))
	}

	if err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %s", logging.SanitizeConnectionString(connStr), logging.SanitizeError(err))
	}

	logger = logger.Named("mssql-source")
	logger.Info("Connected to SQL Server source",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)),
		zap.String("schema", cfg.Schema))

	return &Source{db: db, schema: cfg.Schema, rowLimit: rowLimit, logger: logger}, nil
}

var _ tablesource.Source = (*Source)(nil)

// Discover lists the base tables of the schema ordered by name.
func (s *Source) Discover(ctx context.Context) ([]models.TableRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var refs []models.TableRef
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		refs = append(refs, models.TableRef{
			Name:     strings.ToLower(name),
			Source:   s.schema + "." + name,
			Location: name,
		})
	}
	return refs, rows.Err()
}

// Load selects every column of the table, honouring the configured row limit.
func (s *Source) Load(ctx context.Context, ref models.TableRef) (*models.Table, error) {
	top := ""
	if s.rowLimit > 0 {
		top = fmt.Sprintf("TOP (%d) ", s.rowLimit)
	}
	query := "SELECT " + top + "* FROM " + qualifiedName(s.schema, ref.Location)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ref.Source, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", ref.Source, err)
	}
	table := &models.Table{Name: ref.Name, Columns: columns}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
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

// Close closes the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// quoteName brackets an identifier, doubling any closing bracket.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func qualifiedName(schema, table string) string {
	return quoteName(schema) + "." + quoteName(table)
}
