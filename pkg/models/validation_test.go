package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewValidationResult(t *testing.T) {
	result := NewValidationResult("titles", "titles_suite", []RuleOutcome{
		{Rule: NotNull("emp_no"), Success: true},
		{Rule: NotNull("title"), Success: false},
		{Rule: Unique("emp_no"), Success: true},
		{Rule: ColumnListMatch([]string{"emp_no"}), Success: true},
	})

	assert.False(t, result.Success)
	assert.Equal(t, 4, result.Statistics.EvaluatedRules)
	assert.Equal(t, 3, result.Statistics.SuccessfulRules)
	assert.Equal(t, 1, result.Statistics.UnsuccessfulRules)
	assert.InDelta(t, 75.0, result.Statistics.SuccessPercent, 1e-9)

	empty := NewValidationResult("titles", "titles_suite", nil)
	assert.True(t, empty.Success)
	assert.Equal(t, 100.0, empty.Statistics.SuccessPercent)
}

func TestNewReport(t *testing.T) {
	runID := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	table := &Table{Name: "titles", Columns: []string{"emp_no", "title"}, Rows: [][]Cell{{Value("1"), Value("Engineer")}}}
	result := NewValidationResult("titles", "titles_auto_generated_suite", []RuleOutcome{
		{Rule: RowCountRange(0, 1), Success: true, Detail: RuleDetail{ObservedValue: 1}},
	})

	report := NewReport(runID, PipelineCombined, TableRef{Name: "titles", Source: "titles.csv"}, table, result, at)

	assert.Equal(t, runID, report.RunID)
	assert.Equal(t, "titles.csv", report.Source)
	assert.Equal(t, 1, report.RowCount)
	assert.Equal(t, 2, report.ColumnCount)
	assert.True(t, report.RulesFromStatistics)
	assert.True(t, report.ValidationSuccess)
	assert.Equal(t, RuleRowCountRange, report.RuleOutcomes[0].RuleKind)
	assert.Equal(t, 1.0, report.RuleOutcomes[0].Parameters["max_value"])
}

func TestNewRunSummary(t *testing.T) {
	summary := NewRunSummary(uuid.New(), PipelineCombined, map[string]*ValidationResult{
		"employees": NewValidationResult("employees", "s", []RuleOutcome{{Success: true}, {Success: false}}),
		"titles":    NewValidationResult("titles", "s", []RuleOutcome{{Success: true}}),
	}, time.Now())

	assert.Equal(t, 2, summary.TotalTablesProcessed)
	assert.Equal(t, TableSummary{ValidationSuccess: false, TotalRules: 2, SuccessfulRules: 1, FailedRules: 1}, summary.TableResults["employees"])
	assert.True(t, summary.TableResults["titles"].ValidationSuccess)
}

func TestTableNameFromFile(t *testing.T) {
	assert.Equal(t, "employees", TableNameFromFile("/data/Employees.CSV"))
	assert.Equal(t, "dept_emp", TableNameFromFile("dept_emp.xlsx"))

	table := &Table{Columns: []string{"a", "b"}, Rows: [][]Cell{{Value("1"), NullCell()}}}
	assert.Equal(t, 1, table.ColumnIndex("b"))
	assert.Equal(t, -1, table.ColumnIndex("c"))
	assert.Equal(t, []Cell{NullCell()}, table.ColumnValues(1))
}
