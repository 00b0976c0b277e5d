package models

import (
	"time"

	"github.com/google/uuid"
)

// PipelineType distinguishes how a rule set was acquired.
type PipelineType string

const (
	PipelineStatic   PipelineType = "static"
	PipelineCombined PipelineType = "combined"
)

// RuleDetail carries the observations behind a rule outcome.
type RuleDetail struct {
	ObservedValue         any      `json:"observed_value,omitempty"`
	ElementCount          int      `json:"element_count"`
	MissingCount          int      `json:"missing_count"`
	MissingPercent        float64  `json:"missing_percent"`
	UnexpectedCount       int      `json:"unexpected_count"`
	UnexpectedPercent     float64  `json:"unexpected_percent"`
	PartialUnexpectedList []string `json:"partial_unexpected_list,omitempty"`
	Exception             string   `json:"exception,omitempty"`
}

// RuleOutcome is the evaluation of one rule.
type RuleOutcome struct {
	Rule    Rule       `json:"-"`
	Success bool       `json:"success"`
	Detail  RuleDetail `json:"result"`
}

// ValidationStatistics summarizes the outcomes of a validation.
type ValidationStatistics struct {
	EvaluatedRules    int     `json:"evaluated_rules"`
	SuccessfulRules   int     `json:"successful_rules"`
	UnsuccessfulRules int     `json:"unsuccessful_rules"`
	SuccessPercent    float64 `json:"success_percent"`
}

// ValidationResult is the outcome of validating one table against one rule set.
type ValidationResult struct {
	Table      string
	RuleSet    string
	Success    bool
	Outcomes   []RuleOutcome
	Statistics ValidationStatistics
}

// NewValidationResult derives the overall flag and statistics from outcomes.
func NewValidationResult(table, ruleSet string, outcomes []RuleOutcome) *ValidationResult {
	stats := ValidationStatistics{EvaluatedRules: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			stats.SuccessfulRules++
		} else {
			stats.UnsuccessfulRules++
		}
	}
	if stats.EvaluatedRules > 0 {
		stats.SuccessPercent = float64(stats.SuccessfulRules) / float64(stats.EvaluatedRules) * 100
	} else {
		stats.SuccessPercent = 100
	}
	return &ValidationResult{
		Table:      table,
		RuleSet:    ruleSet,
		Success:    stats.UnsuccessfulRules == 0,
		Outcomes:   outcomes,
		Statistics: stats,
	}
}

// ReportedOutcome is a rule outcome as written to a report.
type ReportedOutcome struct {
	RuleKind   RuleKind       `json:"rule_kind"`
	Success    bool           `json:"success"`
	Parameters map[string]any `json:"parameters"`
	Result     RuleDetail     `json:"result"`
}

// Report is the per-table output document.
type Report struct {
	RunID               uuid.UUID            `json:"run_id"`
	TableName           string               `json:"table_name"`
	Source              string               `json:"source"`
	PipelineType        PipelineType         `json:"pipeline_type"`
	RuleSet             string               `json:"rule_set"`
	Timestamp           time.Time            `json:"timestamp"`
	RowCount            int                  `json:"row_count"`
	ColumnCount         int                  `json:"column_count"`
	ValidationSuccess   bool                 `json:"validation_success"`
	RulesFromStatistics bool                 `json:"rules_from_statistics"`
	Statistics          ValidationStatistics `json:"statistics"`
	RuleOutcomes        []ReportedOutcome    `json:"rule_outcomes"`
}

// NewReport assembles the report for one validated table.
func NewReport(runID uuid.UUID, pipeline PipelineType, ref TableRef, table *Table, result *ValidationResult, at time.Time) *Report {
	outcomes := make([]ReportedOutcome, len(result.Outcomes))
	for i, o := range result.Outcomes {
		outcomes[i] = ReportedOutcome{
			RuleKind:   o.Rule.Kind,
			Success:    o.Success,
			Parameters: o.Rule.Parameters(),
			Result:     o.Detail,
		}
	}
	return &Report{
		RunID:               runID,
		TableName:           ref.Name,
		Source:              ref.Source,
		PipelineType:        pipeline,
		RuleSet:             result.RuleSet,
		Timestamp:           at,
		RowCount:            table.RowCount(),
		ColumnCount:         table.ColumnCount(),
		ValidationSuccess:   result.Success,
		RulesFromStatistics: pipeline == PipelineCombined,
		Statistics:          result.Statistics,
		RuleOutcomes:        outcomes,
	}
}

// TableSummary is one table's line in a run summary.
type TableSummary struct {
	ValidationSuccess bool `json:"validation_success"`
	TotalRules        int  `json:"total_rules"`
	SuccessfulRules   int  `json:"successful_rules"`
	FailedRules       int  `json:"failed_rules"`
}

// RunSummary aggregates the tables that completed execution in one run.
type RunSummary struct {
	RunID                uuid.UUID               `json:"run_id"`
	PipelineType         PipelineType            `json:"pipeline_type"`
	Timestamp            time.Time               `json:"timestamp"`
	TotalTablesProcessed int                     `json:"total_tables_processed"`
	TableResults         map[string]TableSummary `json:"table_results"`
}

// NewRunSummary aggregates validation results keyed by table name.
func NewRunSummary(runID uuid.UUID, pipeline PipelineType, results map[string]*ValidationResult, at time.Time) *RunSummary {
	summary := &RunSummary{
		RunID:                runID,
		PipelineType:         pipeline,
		Timestamp:            at,
		TotalTablesProcessed: len(results),
		TableResults:         make(map[string]TableSummary, len(results)),
	}
	for table, result := range results {
		summary.TableResults[table] = TableSummary{
			ValidationSuccess: result.Success,
			TotalRules:        result.Statistics.EvaluatedRules,
			SuccessfulRules:   result.Statistics.SuccessfulRules,
			FailedRules:       result.Statistics.UnsuccessfulRules,
		}
	}
	return summary
}
