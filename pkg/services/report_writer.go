package services

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/jsonutil"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// SummaryFileName is the run summary written by the statistics-driven pipeline.
const SummaryFileName = "combined_pipeline_summary.json"

// ReportFileName returns the report file name for a table under a pipeline type.
func ReportFileName(table string, pipeline models.PipelineType) string {
	if pipeline == models.PipelineCombined {
		return table + "_combined_validation_results.json"
	}
	return table + "_validation_results.json"
}

// ReportWriter persists reports and run summaries.
type ReportWriter interface {
	WriteReport(ctx context.Context, report *models.Report) (string, error)
	WriteSummary(ctx context.Context, summary *models.RunSummary) (string, error)
}

type fileReportWriter struct {
	dir    string
	logger *zap.Logger
}

// NewReportWriter creates a writer that places JSON documents in dir, creating it if absent.
func NewReportWriter(dir string, logger *zap.Logger) ReportWriter {
	return &fileReportWriter{
		dir:    dir,
		logger: logger.Named("report-writer"),
	}
}

var _ ReportWriter = (*fileReportWriter)(nil)

func (w *fileReportWriter) WriteReport(ctx context.Context, report *models.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, ReportFileName(report.TableName, report.PipelineType))
	if err := jsonutil.WriteFile(path, report); err != nil {
		return "", fmt.Errorf("write report for %s: %w", report.TableName, err)
	}

	w.logger.Info("Wrote validation report",
		zap.String("table", report.TableName),
		zap.String("path", path),
		zap.Bool("success", report.ValidationSuccess))
	return path, nil
}

func (w *fileReportWriter) WriteSummary(ctx context.Context, summary *models.RunSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, SummaryFileName)
	if err := jsonutil.WriteFile(path, summary); err != nil {
		return "", fmt.Errorf("write run summary: %w", err)
	}

	w.logger.Info("Wrote run summary",
		zap.String("path", path),
		zap.Int("tables", summary.TotalTablesProcessed))
	return path, nil
}
