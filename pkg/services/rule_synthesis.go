package services

import (
	"math"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// SynthesisPolicy holds the thresholds that turn statistics into rules.
type SynthesisPolicy struct {
	// Row-count band around the observed Size.
	RowCountLowerFactor float64
	RowCountUpperFactor float64
	// Completeness at or above StrictCompleteness yields a strict not-null rule;
	// between MinCompleteness and StrictCompleteness a tolerant one with
	// mostly = completeness * MostlyFactor.
	StrictCompleteness float64
	MinCompleteness    float64
	MostlyFactor       float64
	// Uniqueness at or above MinUniqueness yields a unique rule.
	MinUniqueness float64
}

// DefaultSynthesisPolicy returns the standard tolerance bands.
func DefaultSynthesisPolicy() SynthesisPolicy {
	return SynthesisPolicy{
		RowCountLowerFactor: 0.9,
		RowCountUpperFactor: 1.1,
		StrictCompleteness:  0.95,
		MinCompleteness:     0.5,
		MostlyFactor:        0.9,
		MinUniqueness:       0.99,
	}
}

// SynthesisPolicyFromConfig maps the synthesis config section onto a policy.
func SynthesisPolicyFromConfig(cfg config.SynthesisConfig) SynthesisPolicy {
	return SynthesisPolicy{
		RowCountLowerFactor: cfg.RowCountLowerFactor,
		RowCountUpperFactor: cfg.RowCountUpperFactor,
		StrictCompleteness:  cfg.StrictCompleteness,
		MinCompleteness:     cfg.MinCompleteness,
		MostlyFactor:        cfg.MostlyFactor,
		MinUniqueness:       cfg.MinUniqueness,
	}
}

// SynthesizedSuiteName is the rule-set name given to statistics-derived rules.
func SynthesizedSuiteName(table string) string {
	return table + "_auto_generated_suite"
}

// RuleSynthesisService derives validation rules from column statistics.
type RuleSynthesisService interface {
	// Synthesize builds the rule set for table from its measurements. columns is the
	// live column list the structural rule is pinned to. Measurements that cannot be
	// decoded are logged and skipped; the result always ends with one column_list_match rule.
	Synthesize(table string, measurements []models.Measurement, columns []string) models.RuleSet
}

type ruleSynthesisService struct {
	policy SynthesisPolicy
	logger *zap.Logger
}

// NewRuleSynthesisService creates a synthesis service with the given policy.
func NewRuleSynthesisService(policy SynthesisPolicy, logger *zap.Logger) RuleSynthesisService {
	return &ruleSynthesisService{
		policy: policy,
		logger: logger.Named("rule-synthesis"),
	}
}

var _ RuleSynthesisService = (*ruleSynthesisService)(nil)

// rangeBounds collects the Minimum/Maximum observed for one column.
type rangeBounds struct {
	min *float64
	max *float64
}

func (s *ruleSynthesisService) Synthesize(table string, measurements []models.Measurement, columns []string) models.RuleSet {
	latest, order := s.decodeAll(table, measurements)

	var rules []models.Rule
	bounds := make(map[string]*rangeBounds)
	var rangeOrder []string

	// Pass 1: direct rules, accumulating range bounds.
	for _, key := range order {
		m := latest[key]
		switch m.Kind {
		case models.KindSize:
			rules = append(rules, s.rowCountRule(m.Value))

		case models.KindCompleteness:
			if rule, ok := s.completenessRule(m.Column, m.Value); ok {
				rules = append(rules, rule)
			}

		case models.KindUniqueness:
			if m.Value >= s.policy.MinUniqueness {
				rules = append(rules, models.Unique(m.Column))
			}

		case models.KindMinimum, models.KindMaximum:
			b, ok := bounds[m.Column]
			if !ok {
				b = &rangeBounds{}
				bounds[m.Column] = b
				rangeOrder = append(rangeOrder, m.Column)
			}
			v := m.Value
			if m.Kind == models.KindMinimum {
				b.min = &v
			} else {
				b.max = &v
			}

		case models.KindMinLength:
			if minLen := int(m.Value); minLen > 0 {
				rules = append(rules, models.LengthRange(m.Column, minLen, nil))
			}

		case models.KindUnknown:
			// decodeAll never keeps unknown kinds
		}
	}

	// Pass 2: range merge, only for columns with both bounds.
	for _, column := range rangeOrder {
		b := bounds[column]
		if b.min == nil || b.max == nil {
			s.logger.Debug("Skipping value range with a single bound",
				zap.String("table", table),
				zap.String("column", column))
			continue
		}
		rules = append(rules, models.ValueRange(column, *b.min, *b.max))
	}

	rules = append(rules, models.ColumnListMatch(columns))

	return models.RuleSet{
		Table: table,
		Name:  SynthesizedSuiteName(table),
		Rules: rules,
	}
}

// decodeAll decodes every measurement once, keeping the last value per (kind, column)
// and the order in which each key first appeared.
func (s *ruleSynthesisService) decodeAll(table string, measurements []models.Measurement) (map[string]models.DecodedMeasurement, []string) {
	latest := make(map[string]models.DecodedMeasurement, len(measurements))
	order := make([]string, 0, len(measurements))

	for _, raw := range measurements {
		m, err := raw.Decode()
		if err != nil {
			s.logger.Warn("Skipping malformed measurement",
				zap.String("table", table),
				zap.String("analyzer", m.Analyzer),
				zap.Error(err))
			continue
		}
		if m.Kind == models.KindUnknown {
			s.logger.Debug("Skipping unsupported measurement",
				zap.String("table", table),
				zap.String("analyzer", m.Analyzer))
			continue
		}
		if m.Column == models.WildcardColumn {
			s.logger.Debug("Skipping table-wide measurement",
				zap.String("table", table),
				zap.String("analyzer", m.Analyzer))
			continue
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			s.logger.Warn("Skipping non-finite measurement",
				zap.String("table", table),
				zap.String("analyzer", m.Analyzer))
			continue
		}
		if math.Abs(m.Value) >= maxMeasurementValue {
			s.logger.Warn("Skipping malformed measurement",
				zap.String("table", table),
				zap.String("analyzer", m.Analyzer),
				zap.Float64("value", m.Value),
				zap.String("reason", "value out of integer range"))
			continue
		}

		key := m.Key()
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = m
	}
	return latest, order
}

// maxMeasurementValue is 2^63; values at or beyond it do not fit an int64.
const maxMeasurementValue = float64(math.MaxInt64)

// maxRowBound is the largest float64 that converts to int64 without overflow.
var maxRowBound = math.Nextafter(maxMeasurementValue, 0)

func (s *ruleSynthesisService) rowCountRule(value float64) models.Rule {
	count := math.Trunc(value)
	lo := math.Min(maxRowBound, math.Max(0, math.Floor(count*s.policy.RowCountLowerFactor)))
	hi := math.Min(maxRowBound, math.Max(lo, math.Floor(count*s.policy.RowCountUpperFactor)))
	return models.RowCountRange(int64(lo), int64(hi))
}

func (s *ruleSynthesisService) completenessRule(column string, ratio float64) (models.Rule, bool) {
	switch {
	case ratio >= s.policy.StrictCompleteness:
		return models.NotNull(column), true
	case ratio >= s.policy.MinCompleteness:
		return models.NotNullMostly(column, ratio*s.policy.MostlyFactor), true
	default:
		return models.Rule{}, false
	}
}
