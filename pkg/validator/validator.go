// Package validator evaluates rule sets against loaded tables.
package validator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// PartialUnexpectedLimit caps the unexpected values sampled into a rule detail.
const PartialUnexpectedLimit = 20

// cancelCheckInterval is how many cells are scanned between context checks.
const cancelCheckInterval = 4096

// Validator executes rule sets.
type Validator interface {
	// Validate evaluates every rule of rs against table. Rule-level problems such as
	// a missing column become unsuccessful outcomes; only context cancellation
	// aborts the table with an error.
	Validate(ctx context.Context, rs models.RuleSet, table *models.Table) (*models.ValidationResult, error)
}

type validator struct {
	logger *zap.Logger
}

// New creates a Validator.
func New(logger *zap.Logger) Validator {
	return &validator{logger: logger.Named("validator")}
}

var _ Validator = (*validator)(nil)

func (v *validator) Validate(ctx context.Context, rs models.RuleSet, table *models.Table) (*models.ValidationResult, error) {
	start := time.Now()
	outcomes := make([]models.RuleOutcome, 0, len(rs.Rules))

	for _, rule := range rs.Rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", table.Name, err)
		}
		outcome, err := v.evaluate(ctx, rule, table)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", table.Name, err)
		}
		outcomes = append(outcomes, outcome)
	}

	result := models.NewValidationResult(table.Name, rs.Name, outcomes)
	v.logger.Debug("Validated table",
		zap.String("table", table.Name),
		zap.String("rule_set", rs.Name),
		zap.Int("rules", len(outcomes)),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (v *validator) evaluate(ctx context.Context, rule models.Rule, table *models.Table) (models.RuleOutcome, error) {
	switch rule.Kind {
	case models.RuleColumnListMatch:
		return checkColumnList(rule, table), nil
	case models.RuleRowCountRange:
		return checkRowCount(rule, table), nil
	case models.RuleNotNull, models.RuleUnique, models.RuleInSet, models.RuleValueRange, models.RuleLengthRange:
		idx := table.ColumnIndex(rule.Column)
		if idx < 0 {
			return failedOutcome(rule, fmt.Errorf("%w: %q", apperrors.ErrColumnNotFound, rule.Column)), nil
		}
		return checkColumn(ctx, rule, table.ColumnValues(idx))
	default:
		v.logger.Warn("Unsupported rule kind", zap.String("kind", string(rule.Kind)))
		return failedOutcome(rule, fmt.Errorf("unsupported rule kind %q", rule.Kind)), nil
	}
}

func failedOutcome(rule models.Rule, err error) models.RuleOutcome {
	return models.RuleOutcome{
		Rule:    rule,
		Success: false,
		Detail:  models.RuleDetail{Exception: err.Error()},
	}
}
