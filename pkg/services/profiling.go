package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// ProfilingService computes per-table statistics in the measurement format the
// statistics-driven pipeline consumes.
type ProfilingService interface {
	// Profile computes measurements for one loaded table.
	Profile(table *models.Table) []models.Measurement
	// Run profiles every discovered table and saves its metrics file.
	Run(ctx context.Context) (*ProfileResult, error)
}

// ProfileResult lists the outcome of a profiling run.
type ProfileResult struct {
	Profiled map[string]string // table -> metrics file path
	Failed   map[string]error
}

type profilingService struct {
	source  tablesource.Source
	metrics MetricsStore
	pool    *WorkerPool
	logger  *zap.Logger
}

// NewProfilingService creates a profiling service.
func NewProfilingService(source tablesource.Source, metrics MetricsStore, pool *WorkerPool, logger *zap.Logger) ProfilingService {
	return &profilingService{
		source:  source,
		metrics: metrics,
		pool:    pool,
		logger:  logger.Named("profiling"),
	}
}

var _ ProfilingService = (*profilingService)(nil)

func (s *profilingService) Run(ctx context.Context) (*ProfileResult, error) {
	refs, err := s.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	result := &ProfileResult{
		Profiled: make(map[string]string),
		Failed:   make(map[string]error),
	}
	if len(refs) == 0 {
		s.logger.Warn("No input tables found")
		return result, nil
	}

	items := make([]WorkItem[string], len(refs))
	for i, ref := range refs {
		ref := ref // per-iteration copy; go directive is 1.21
		items[i] = WorkItem[string]{
			ID: ref.Name,
			Execute: func(ctx context.Context) (string, error) {
				return s.profileTable(ctx, ref)
			},
		}
	}

	for _, r := range Process(ctx, s.pool, items, logProgress(s.logger, "Profiled table")) {
		if r.Err != nil {
			s.logger.Error("Failed to profile table",
				zap.String("table", r.ID),
				zap.Error(r.Err))
			result.Failed[r.ID] = r.Err
			continue
		}
		result.Profiled[r.ID] = r.Result
	}

	s.logger.Info("Profiling complete",
		zap.Int("profiled", len(result.Profiled)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *profilingService) profileTable(ctx context.Context, ref models.TableRef) (string, error) {
	table, err := s.source.Load(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", ref.Source, err)
	}
	return s.metrics.Save(ctx, ref.Name, s.Profile(table))
}

func (s *profilingService) Profile(table *models.Table) []models.Measurement {
	rows := table.RowCount()
	measurements := []models.Measurement{models.NewMeasurement("Size()", float64(rows))}
	if rows == 0 {
		return measurements
	}

	for i, column := range table.Columns {
		measurements = append(measurements, profileColumn(column, table.ColumnValues(i), rows)...)
	}

	s.logger.Debug("Profiled table",
		zap.String("table", table.Name),
		zap.Int("rows", rows),
		zap.Int("measurements", len(measurements)))
	return measurements
}

func profileColumn(column string, cells []models.Cell, rows int) []models.Measurement {
	analyzer := func(kind string) string {
		return kind + "(" + column + ")"
	}

	present := make([]string, 0, len(cells))
	counts := make(map[string]int, len(cells))
	for _, c := range cells {
		if c.Null {
			continue
		}
		present = append(present, c.Raw)
		counts[c.Raw]++
	}

	out := []models.Measurement{
		models.NewMeasurement(analyzer("Completeness"), float64(len(present))/float64(rows)),
	}
	if len(present) == 0 {
		return out
	}

	singles := 0
	for _, n := range counts {
		if n == 1 {
			singles++
		}
	}
	out = append(out, models.NewMeasurement(analyzer("Uniqueness"), float64(singles)/float64(len(present))))

	if numbers, ok := parseNumbers(present); ok {
		// Errors are only returned for empty input, which is excluded above.
		lo, _ := stats.Min(numbers)
		hi, _ := stats.Max(numbers)
		mean, _ := stats.Mean(numbers)
		sd, _ := stats.StandardDeviationPopulation(numbers)
		return append(out,
			models.NewMeasurement(analyzer("Minimum"), lo),
			models.NewMeasurement(analyzer("Maximum"), hi),
			models.NewMeasurement(analyzer("Mean"), mean),
			models.NewMeasurement(analyzer("StandardDeviation"), sd),
		)
	}

	lengths := make(stats.Float64Data, len(present))
	for i, v := range present {
		lengths[i] = float64(utf8.RuneCountInString(v))
	}
	minLen, _ := lengths.Min()
	maxLen, _ := lengths.Max()
	return append(out,
		models.NewMeasurement(analyzer("MinLength"), minLen),
		models.NewMeasurement(analyzer("MaxLength"), maxLen),
	)
}

// parseNumbers returns the values as floats when every one of them is numeric.
func parseNumbers(values []string) (stats.Float64Data, bool) {
	numbers := make(stats.Float64Data, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		numbers[i] = f
	}
	return numbers, true
}
