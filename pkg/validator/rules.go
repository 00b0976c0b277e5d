package validator

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/datacheck/pkg/logging"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

func checkColumnList(rule models.Rule, table *models.Table) models.RuleOutcome {
	return models.RuleOutcome{
		Rule:    rule,
		Success: slices.Equal(rule.ColumnList, table.Columns),
		Detail:  models.RuleDetail{ObservedValue: slices.Clone(table.Columns)},
	}
}

func checkRowCount(rule models.Rule, table *models.Table) models.RuleOutcome {
	rows := table.RowCount()
	return models.RuleOutcome{
		Rule:    rule,
		Success: withinBounds(float64(rows), rule.Min, rule.Max),
		Detail:  models.RuleDetail{ObservedValue: rows},
	}
}

// cellCheck reports whether a non-null value satisfies a column rule.
type cellCheck func(raw string) bool

// checkColumn evaluates a column map rule. Null cells are never unexpected
// except for not_null, where they are the only unexpected values.
func checkColumn(ctx context.Context, rule models.Rule, cells []models.Cell) (models.RuleOutcome, error) {
	var check cellCheck
	switch rule.Kind {
	case models.RuleUnique:
		check = duplicateCheck(cells)
	case models.RuleInSet:
		check = func(raw string) bool { return slices.Contains(rule.ValueSet, raw) }
	case models.RuleValueRange:
		check = func(raw string) bool {
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
			return withinBounds(f, rule.Min, rule.Max)
		}
	case models.RuleLengthRange:
		check = func(raw string) bool {
			return withinBounds(float64(utf8.RuneCountInString(raw)), rule.Min, rule.Max)
		}
	}

	detail := models.RuleDetail{ElementCount: len(cells)}
	var partial []string
	for i, cell := range cells {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return models.RuleOutcome{}, err
			}
		}

		if cell.Null {
			detail.MissingCount++
			continue
		}
		if check != nil && !check(cell.Raw) {
			detail.UnexpectedCount++
			if len(partial) < PartialUnexpectedLimit {
				partial = append(partial, logging.TruncateString(cell.Raw, logging.MaxValueLogLength))
			}
		}
	}

	// For not_null the missing cells are the unexpected ones, measured against all rows.
	denominator := len(cells) - detail.MissingCount
	if rule.Kind == models.RuleNotNull {
		detail.UnexpectedCount = detail.MissingCount
		denominator = len(cells)
	}

	if len(cells) > 0 {
		detail.MissingPercent = percent(detail.MissingCount, len(cells))
	}
	if denominator > 0 {
		detail.UnexpectedPercent = percent(detail.UnexpectedCount, denominator)
	}
	detail.PartialUnexpectedList = partial

	return models.RuleOutcome{
		Rule:    rule,
		Success: meetsMostly(detail.UnexpectedCount, denominator, rule.Mostly),
		Detail:  detail,
	}, nil
}

// duplicateCheck flags every value that occurs more than once among non-null cells.
func duplicateCheck(cells []models.Cell) cellCheck {
	counts := make(map[string]int, len(cells))
	for _, c := range cells {
		if !c.Null {
			counts[c.Raw]++
		}
	}
	return func(raw string) bool { return counts[raw] == 1 }
}

// meetsMostly reports whether the passing fraction reaches mostly (1 when unset).
// An empty population always passes.
func meetsMostly(unexpected, total int, mostly *float64) bool {
	if total == 0 {
		return true
	}
	if mostly == nil {
		return unexpected == 0
	}
	return float64(total-unexpected)/float64(total) >= *mostly
}

func withinBounds(v float64, min, max *float64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
