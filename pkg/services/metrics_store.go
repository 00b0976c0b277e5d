package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/jsonutil"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// MetricsFileSuffix is appended to a table identifier to name its metrics file.
const MetricsFileSuffix = "_deequ_metrics.json"

// MetricsFileName returns the metrics file name for a table.
func MetricsFileName(table string) string {
	return table + MetricsFileSuffix
}

// MetricsStore reads and writes per-table measurement files.
type MetricsStore interface {
	// Dir returns the directory holding metrics files.
	Dir() string
	// DirExists reports whether the metrics directory is present.
	DirExists() bool
	// Has reports whether a metrics file exists for the table.
	Has(ctx context.Context, table string) (bool, error)
	// Load returns the measurements for a table. A missing file returns apperrors.ErrNotFound.
	Load(ctx context.Context, table string) ([]models.Measurement, error)
	// Save writes the measurements for a table, replacing any previous file.
	Save(ctx context.Context, table string, measurements []models.Measurement) (string, error)
}

type fileMetricsStore struct {
	dir    string
	logger *zap.Logger
}

// NewMetricsStore creates a metrics store rooted at dir.
func NewMetricsStore(dir string, logger *zap.Logger) MetricsStore {
	return &fileMetricsStore{
		dir:    dir,
		logger: logger.Named("metrics-store"),
	}
}

var _ MetricsStore = (*fileMetricsStore)(nil)

func (s *fileMetricsStore) Dir() string {
	return s.dir
}

func (s *fileMetricsStore) DirExists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

func (s *fileMetricsStore) path(table string) string {
	return filepath.Join(s.dir, MetricsFileName(table))
}

func (s *fileMetricsStore) Has(ctx context.Context, table string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(table))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat metrics for %s: %w", table, err)
}

func (s *fileMetricsStore) Load(ctx context.Context, table string) ([]models.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(table)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("metrics for %s: %w", table, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read metrics for %s: %w", table, err)
	}

	measurements, err := decodeMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	s.logger.Debug("Loaded metrics",
		zap.String("table", table),
		zap.Int("measurements", len(measurements)))
	return measurements, nil
}

// decodeMetrics accepts {"metrics": [...]} or a bare array of records.
func decodeMetrics(data []byte) ([]models.Measurement, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var measurements []models.Measurement
		if err := json.Unmarshal(trimmed, &measurements); err != nil {
			return nil, err
		}
		return measurements, nil
	}
	var doc models.MetricsDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Metrics, nil
}

func (s *fileMetricsStore) Save(ctx context.Context, table string, measurements []models.Measurement) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.path(table)
	doc := models.MetricsDocument{Table: table, Metrics: measurements}
	if doc.Metrics == nil {
		doc.Metrics = []models.Measurement{}
	}
	if err := jsonutil.WriteFile(path, doc); err != nil {
		return "", fmt.Errorf("write metrics for %s: %w", table, err)
	}

	s.logger.Info("Saved metrics",
		zap.String("table", table),
		zap.String("path", path),
		zap.Int("measurements", len(measurements)))
	return path, nil
}
