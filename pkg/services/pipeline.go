package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/catalog"
	"github.com/ekaya-inc/datacheck/pkg/models"
	"github.com/ekaya-inc/datacheck/pkg/repositories"
	"github.com/ekaya-inc/datacheck/pkg/validator"
)

// RuleAcquirer supplies the rule set for a table.
type RuleAcquirer interface {
	// Pipeline identifies how rules are acquired.
	Pipeline() models.PipelineType
	// Prepare checks run-wide preconditions before any table is processed.
	Prepare(ctx context.Context) error
	// Has reports whether rules exist for the table, without loading it.
	Has(ctx context.Context, ref models.TableRef) (bool, error)
	// Acquire returns the rule set for a loaded table.
	Acquire(ctx context.Context, ref models.TableRef, table *models.Table) (models.RuleSet, error)
}

type catalogAcquirer struct {
	catalog *catalog.Catalog
}

// NewCatalogAcquirer acquires rules by looking tables up in a static catalog.
func NewCatalogAcquirer(c *catalog.Catalog) RuleAcquirer {
	return &catalogAcquirer{catalog: c}
}

func (a *catalogAcquirer) Pipeline() models.PipelineType { return models.PipelineStatic }

func (a *catalogAcquirer) Prepare(ctx context.Context) error { return nil }

func (a *catalogAcquirer) Has(ctx context.Context, ref models.TableRef) (bool, error) {
	return a.catalog.Has(ref.Name), nil
}

func (a *catalogAcquirer) Acquire(ctx context.Context, ref models.TableRef, table *models.Table) (models.RuleSet, error) {
	rs, ok := a.catalog.Lookup(ref.Name)
	if !ok {
		return models.RuleSet{}, fmt.Errorf("rule set for %s: %w", ref.Name, apperrors.ErrNotFound)
	}
	return rs, nil
}

type statisticsAcquirer struct {
	metrics   MetricsStore
	synthesis RuleSynthesisService
}

// NewStatisticsAcquirer acquires rules by synthesizing them from stored measurements.
func NewStatisticsAcquirer(metrics MetricsStore, synthesis RuleSynthesisService) RuleAcquirer {
	return &statisticsAcquirer{metrics: metrics, synthesis: synthesis}
}

func (a *statisticsAcquirer) Pipeline() models.PipelineType { return models.PipelineCombined }

func (a *statisticsAcquirer) Prepare(ctx context.Context) error {
	if !a.metrics.DirExists() {
		return fmt.Errorf("metrics directory %s: %w", a.metrics.Dir(), apperrors.ErrNotFound)
	}
	return nil
}

func (a *statisticsAcquirer) Has(ctx context.Context, ref models.TableRef) (bool, error) {
	return a.metrics.Has(ctx, ref.Name)
}

func (a *statisticsAcquirer) Acquire(ctx context.Context, ref models.TableRef, table *models.Table) (models.RuleSet, error) {
	measurements, err := a.metrics.Load(ctx, ref.Name)
	if err != nil {
		return models.RuleSet{}, err
	}
	return a.synthesis.Synthesize(ref.Name, measurements, table.Columns), nil
}

// PipelineConfig controls a pipeline run.
type PipelineConfig struct {
	// ValidationTimeout bounds each table's validation. Zero disables the limit.
	ValidationTimeout time.Duration
	// WriteSummary writes the run summary file after all tables are processed.
	WriteSummary bool
}

// RunResult collects the outcome of a pipeline run.
type RunResult struct {
	RunID    uuid.UUID
	Pipeline models.PipelineType
	// Results maps the table source name to its validation result. Tables that
	// were skipped or failed before execution finished are absent.
	Results map[string]*models.ValidationResult
	// Reports maps the table identifier to the written report file.
	Reports map[string]string
	Skipped []string
	Failed  map[string]error
	Summary *models.RunSummary
}

// HasViolations returns true when any validated table failed a rule.
func (r *RunResult) HasViolations() bool {
	for _, res := range r.Results {
		if !res.Success {
			return true
		}
	}
	return false
}

// PipelineService drives discovery, rule acquisition, validation and reporting
// over every table of a source.
type PipelineService interface {
	// Run processes every discovered table. Per-table problems are logged and
	// recorded in the result; an error is returned only when the run cannot
	// start (discovery failed, metrics directory missing). The result is never nil.
	Run(ctx context.Context) (*RunResult, error)
}

type pipelineService struct {
	source    tablesource.Source
	acquirer  RuleAcquirer
	validator validator.Validator
	writer    ReportWriter
	store     repositories.ReportRepository
	pool      *WorkerPool
	config    PipelineConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipelineService creates a pipeline. store may be nil when reports are not persisted.
func NewPipelineService(
	source tablesource.Source,
	acquirer RuleAcquirer,
	v validator.Validator,
	writer ReportWriter,
	store repositories.ReportRepository,
	pool *WorkerPool,
	cfg PipelineConfig,
	logger *zap.Logger,
) PipelineService {
	return &pipelineService{
		source:    source,
		acquirer:  acquirer,
		validator: v,
		writer:    writer,
		store:     store,
		pool:      pool,
		config:    cfg,
		logger:    logger.Named("pipeline").With(zap.String("pipeline_type", string(acquirer.Pipeline()))),
		now:       time.Now,
	}
}

var _ PipelineService = (*pipelineService)(nil)

// tableOutcome is what processing one table produces.
type tableOutcome struct {
	ref        models.TableRef
	skipped    bool
	result     *models.ValidationResult
	reportPath string
}

func (s *pipelineService) Run(ctx context.Context) (*RunResult, error) {
	run := &RunResult{
		RunID:    uuid.New(),
		Pipeline: s.acquirer.Pipeline(),
		Results:  make(map[string]*models.ValidationResult),
		Reports:  make(map[string]string),
		Failed:   make(map[string]error),
	}
	logger := s.logger.With(zap.String("run_id", run.RunID.String()))

	if err := s.acquirer.Prepare(ctx); err != nil {
		logger.Error("Cannot start pipeline", zap.Error(err))
		return run, err
	}

	refs, err := s.source.Discover(ctx)
	if err != nil {
		return run, fmt.Errorf("discover tables: %w", err)
	}
	if len(refs) == 0 {
		logger.Warn("No input tables found", zap.Error(apperrors.ErrNoTables))
		return run, nil
	}

	logger.Info("Starting pipeline",
		zap.Int("tables", len(refs)),
		zap.Int("workers", s.pool.Workers()))

	items := make([]WorkItem[*tableOutcome], len(refs))
	for i, ref := range refs {
		ref := ref // per-iteration copy; go directive is 1.21
		items[i] = WorkItem[*tableOutcome]{
			ID: ref.Source,
			Execute: func(ctx context.Context) (*tableOutcome, error) {
				return s.processTable(ctx, run.RunID, ref, logger)
			},
		}
	}

	executed := make(map[string]*models.ValidationResult)
	for i, r := range Process(ctx, s.pool, items, logProgress(logger, "Processed table")) {
		ref := refs[i]
		switch {
		case r.Err != nil:
			logger.Error("Failed to process table",
				zap.String("table", ref.Name),
				zap.String("source", ref.Source),
				zap.Error(r.Err))
			run.Failed[ref.Source] = r.Err
		case r.Result.skipped:
			run.Skipped = append(run.Skipped, ref.Source)
		default:
			run.Results[ref.Source] = r.Result.result
			executed[ref.Name] = r.Result.result
			if r.Result.reportPath != "" {
				run.Reports[ref.Name] = r.Result.reportPath
			}
		}
	}

	run.Summary = models.NewRunSummary(run.RunID, run.Pipeline, executed, s.now().UTC())
	s.finishRun(ctx, run, logger)

	logger.Info("Pipeline complete",
		zap.Int("validated", len(run.Results)),
		zap.Int("skipped", len(run.Skipped)),
		zap.Int("failed", len(run.Failed)))
	return run, nil
}

func (s *pipelineService) processTable(ctx context.Context, runID uuid.UUID, ref models.TableRef, logger *zap.Logger) (*tableOutcome, error) {
	logger = logger.With(zap.String("table", ref.Name), zap.String("source", ref.Source))

	ok, err := s.acquirer.Has(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("acquire rules: %w", err)
	}
	if !ok {
		logger.Warn("No rule set for table, skipping")
		return &tableOutcome{ref: ref, skipped: true}, nil
	}

	table, err := s.source.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}

	rs, err := s.acquirer.Acquire(ctx, ref, table)
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("No rule set for table, skipping", zap.Error(err))
		return &tableOutcome{ref: ref, skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire rules: %w", err)
	}

	result, err := s.validate(ctx, rs, table)
	if err != nil {
		return nil, err
	}

	logger.Info("Validated table",
		zap.String("rule_set", rs.Name),
		zap.Bool("success", result.Success),
		zap.Int("evaluated_rules", result.Statistics.EvaluatedRules),
		zap.Int("unsuccessful_rules", result.Statistics.UnsuccessfulRules))

	outcome := &tableOutcome{ref: ref, result: result}
	report := models.NewReport(runID, s.acquirer.Pipeline(), ref, table, result, s.now().UTC())

	path, err := s.writer.WriteReport(ctx, report)
	if err != nil {
		logger.Error("Failed to write report", zap.Error(err))
	} else {
		outcome.reportPath = path
	}

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report); err != nil {
			logger.Error("Failed to store report", zap.Error(err))
		}
	}
	return outcome, nil
}

func (s *pipelineService) validate(ctx context.Context, rs models.RuleSet, table *models.Table) (*models.ValidationResult, error) {
	if s.config.ValidationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ValidationTimeout)
		defer cancel()
	}
	return s.validator.Validate(ctx, rs, table)
}

func (s *pipelineService) finishRun(ctx context.Context, run *RunResult, logger *zap.Logger) {
	if s.config.WriteSummary {
		if _, err := s.writer.WriteSummary(ctx, run.Summary); err != nil {
			logger.Error("Failed to write run summary", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, run.Summary); err != nil {
			logger.Error("Failed to store run summary", zap.Error(err))
		}
	}
}
