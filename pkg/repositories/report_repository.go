package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/database"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// ReportRepository persists validation reports and run summaries.
type ReportRepository interface {
	// SaveReport stores one table report. Saving the same (run, table) again replaces it.
	SaveReport(ctx context.Context, report *models.Report) error

	// SaveRun stores or updates the run summary.
	SaveRun(ctx context.Context, summary *models.RunSummary) error

	// GetRun returns a stored run summary, or apperrors.ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (*models.RunSummary, error)

	// ListReports returns the reports of a run ordered by table name.
	ListReports(ctx context.Context, runID uuid.UUID) ([]*models.Report, error)
}

type reportRepository struct {
	db *database.DB
}

// NewReportRepository creates a PostgreSQL-backed report repository.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

var _ ReportRepository = (*reportRepository)(nil)

func (r *reportRepository) SaveReport(ctx context.Context, report *models.Report) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO validation_reports (id, run_id, table_name, source, pipeline_type, rule_set,
			validated_at, row_count, column_count, validation_success, evaluated_rules, unsuccessful_rules, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id, table_name) DO UPDATE SET
			source = EXCLUDED.source,
			rule_set = EXCLUDED.rule_set,
			validated_at = EXCLUDED.validated_at,
			row_count = EXCLUDED.row_count,
			column_count = EXCLUDED.column_count,
			validation_success = EXCLUDED.validation_success,
			evaluated_rules = EXCLUDED.evaluated_rules,
			unsuccessful_rules = EXCLUDED.unsuccessful_rules,
			report = EXCLUDED.report`

	_, err = r.db.Exec(ctx, query,
		uuid.New(),
		report.RunID,
		report.TableName,
		report.Source,
		string(report.PipelineType),
		report.RuleSet,
		report.Timestamp,
		report.RowCount,
		report.ColumnCount,
		report.ValidationSuccess,
		report.Statistics.EvaluatedRules,
		report.Statistics.UnsuccessfulRules,
		doc,
	)
	if err != nil {
		return fmt.Errorf("insert report for %s: %w", report.TableName, err)
	}
	return nil
}

func (r *reportRepository) SaveRun(ctx context.Context, summary *models.RunSummary) error {
	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	query := `
		INSERT INTO validation_runs (id, pipeline_type, run_at, total_tables_processed, summary)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			total_tables_processed = EXCLUDED.total_tables_processed,
			summary = EXCLUDED.summary,
			updated_at = now()`

	_, err = r.db.Exec(ctx, query,
		summary.RunID,
		string(summary.PipelineType),
		summary.Timestamp,
		summary.TotalTablesProcessed,
		doc,
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", summary.RunID, err)
	}
	return nil
}

func (r *reportRepository) GetRun(ctx context.Context, runID uuid.UUID) (*models.RunSummary, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT summary FROM validation_runs WHERE id = $1`, runID).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}

	var summary models.RunSummary
	if err := json.Unmarshal(doc, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}
	return &summary, nil
}

func (r *reportRepository) ListReports(ctx context.Context, runID uuid.UUID) ([]*models.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT report FROM validation_reports WHERE run_id = $1 ORDER BY table_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reports for run %s: %w", runID, err)
	}

	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Report, error) {
		var doc []byte
		if err := row.Scan(&doc); err != nil {
			return nil, err
		}
		var report models.Report
		if err := json.Unmarshal(doc, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		return &report, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan reports for run %s: %w", runID, err)
	}
	return reports, nil
}
