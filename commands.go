package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/catalog"
	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/database"
	"github.com/ekaya-inc/datacheck/pkg/logging"
	"github.com/ekaya-inc/datacheck/pkg/repositories"
	"github.com/ekaya-inc/datacheck/pkg/services"
	"github.com/ekaya-inc/datacheck/pkg/validator"
)

var errViolations = errors.New("one or more tables failed validation")

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newApp(flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath, Version)
	if err != nil {
		return nil, err
	}
	if flags.datasetDir != "" {
		cfg.Dataset.Dir = flags.datasetDir
	}
	if flags.outputDir != "" {
		cfg.Output.Dir = flags.outputDir
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("dataset_source", cfg.Dataset.Source),
		zap.String("dataset_dir", cfg.Dataset.Dir),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Int("workers", cfg.Pipeline.Workers),
		zap.Bool("report_store", cfg.ReportStore.Enabled))
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) openSource(ctx context.Context) (tablesource.Source, error) {
	return tablesource.Open(ctx, a.cfg.Dataset.Source, a.cfg.Dataset, a.logger)
}

// openReportStore returns a nil repository when the store is disabled.
func (a *app) openReportStore(ctx context.Context) (repositories.ReportRepository, func(), error) {
	if !a.cfg.ReportStore.Enabled {
		return nil, func() {}, nil
	}

	dbCfg := database.ConfigFromSettings(&a.cfg.ReportStore.Database)
	if err := database.Migrate(dbCfg.URL, a.logger); err != nil {
		return nil, nil, fmt.Errorf("report store migrations: %s", logging.SanitizeError(err))
	}
	db, err := database.NewConnection(ctx, dbCfg, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewReportRepository(db), db.Close, nil
}

func (a *app) runPipeline(ctx context.Context, acquirer services.RuleAcquirer, writeSummary, failOnViolation bool) error {
	source, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	store, closeStore, err := a.openReportStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := services.NewPipelineService(
		source,
		acquirer,
		validator.New(a.logger),
		services.NewReportWriter(a.cfg.Output.Dir, a.logger),
		store,
		services.NewWorkerPool(services.WorkerPoolConfig{Workers: a.cfg.Pipeline.Workers}, a.logger),
		services.PipelineConfig{
			ValidationTimeout: a.cfg.Pipeline.ValidationTimeout,
			WriteSummary:      writeSummary,
		},
		a.logger,
	)

	run, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	printRun(run)
	if failOnViolation && run.HasViolations() {
		return errViolations
	}
	return nil
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var failOnViolation bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate tables against the static rule catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := catalog.FromConfig(a.cfg.Catalog, a.logger)
			if err != nil {
				return err
			}
			return a.runPipeline(cmd.Context(), services.NewCatalogAcquirer(c), false, failOnViolation)
		},
	}
	cmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "exit with status 1 when any table fails validation")
	return cmd
}

func newCombinedCmd(flags *globalFlags) *cobra.Command {
	var failOnViolation bool
	cmd := &cobra.Command{
		Use:   "combined",
		Short: "Validate tables against rules synthesized from collected statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			acquirer := services.NewStatisticsAcquirer(
				services.NewMetricsStore(a.cfg.Output.MetricsPath(), a.logger),
				services.NewRuleSynthesisService(services.SynthesisPolicyFromConfig(a.cfg.Synthesis), a.logger),
			)
			return a.runPipeline(cmd.Context(), acquirer, true, failOnViolation)
		},
	}
	cmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "exit with status 1 when any table fails validation")
	return cmd
}

func newProfileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Collect per-table statistics for the combined pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			source, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer source.Close()

			profiler := services.NewProfilingService(
				source,
				services.NewMetricsStore(a.cfg.Output.MetricsPath(), a.logger),
				services.NewWorkerPool(services.WorkerPoolConfig{Workers: a.cfg.Pipeline.Workers}, a.logger),
				a.logger,
			)
			result, err := profiler.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Profiled %d table(s), %d failed\n", len(result.Profiled), len(result.Failed))
			return nil
		},
	}
}

func newCatalogCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the configured rule catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath, Version)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			c, err := catalog.FromConfig(cfg.Catalog, logger)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tSUITE\tRULES")
			for _, table := range c.Tables() {
				rs, _ := c.Lookup(table)
				fmt.Fprintf(w, "%s\t%s\t%d\n", table, rs.Name, rs.Len())
			}
			return w.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func printRun(run *services.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run %s (%s)\n", run.RunID, run.Pipeline)
	fmt.Fprintln(w, "SOURCE\tSTATUS\tRULES\tFAILED")
	for _, source := range sortedKeys(run.Results) {
		result := run.Results[source]
		status := "passed"
		if !result.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", source, status, result.Statistics.EvaluatedRules, result.Statistics.UnsuccessfulRules)
	}
	for _, source := range run.Skipped {
		fmt.Fprintf(w, "%s\tskipped\t-\t-\n", source)
	}
	for _, source := range sortedKeys(run.Failed) {
		fmt.Fprintf(w, "%s\terror\t-\t-\n", source)
	}
	_ = w.Flush()
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
