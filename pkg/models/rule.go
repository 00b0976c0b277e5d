package models

import "slices"

// RuleKind names a declarative constraint type.
type RuleKind string

const (
	RuleColumnListMatch RuleKind = "column_list_match"
	RuleUnique          RuleKind = "unique"
	RuleNotNull         RuleKind = "not_null"
	RuleInSet           RuleKind = "in_set"
	RuleValueRange      RuleKind = "value_range"
	RuleLengthRange     RuleKind = "length_range"
	RuleRowCountRange   RuleKind = "row_count_range"
)

// IsColumnRule returns true for kinds evaluated cell by cell over a single column.
func (k RuleKind) IsColumnRule() bool {
	switch k {
	case RuleUnique, RuleNotNull, RuleInSet, RuleValueRange, RuleLengthRange:
		return true
	}
	return false
}

// Rule is a single immutable constraint. Build rules through the constructors;
// they copy slice arguments so callers cannot mutate a rule after creation.
// Nil bounds mean "unbounded"; a nil Mostly means every element must pass.
type Rule struct {
	Kind       RuleKind `json:"kind" yaml:"kind"`
	Column     string   `json:"column,omitempty" yaml:"column,omitempty"`
	ColumnList []string `json:"column_list,omitempty" yaml:"column_list,omitempty"`
	ValueSet   []string `json:"value_set,omitempty" yaml:"value_set,omitempty"`
	Min        *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	Max        *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	Mostly     *float64 `json:"mostly,omitempty" yaml:"mostly,omitempty"`
}

// ColumnListMatch requires the table columns to equal columns, in order.
func ColumnListMatch(columns []string) Rule {
	return Rule{Kind: RuleColumnListMatch, ColumnList: slices.Clone(columns)}
}

// Unique requires every non-null value of column to be distinct.
func Unique(column string) Rule {
	return Rule{Kind: RuleUnique, Column: column}
}

// NotNull requires every value of column to be present.
func NotNull(column string) Rule {
	return Rule{Kind: RuleNotNull, Column: column}
}

// NotNullMostly requires at least the mostly fraction of column values to be present.
func NotNullMostly(column string, mostly float64) Rule {
	return Rule{Kind: RuleNotNull, Column: column, Mostly: &mostly}
}

// InSet requires every non-null value of column to be one of values.
func InSet(column string, values []string) Rule {
	return Rule{Kind: RuleInSet, Column: column, ValueSet: slices.Clone(values)}
}

// ValueRange requires numeric values of column to lie within [min, max].
func ValueRange(column string, min, max float64) Rule {
	return Rule{Kind: RuleValueRange, Column: column, Min: &min, Max: &max}
}

// LengthRange requires value lengths of column to lie within [min, max]. A nil max is unbounded.
func LengthRange(column string, min int, max *int) Rule {
	lo := float64(min)
	r := Rule{Kind: RuleLengthRange, Column: column, Min: &lo}
	if max != nil {
		hi := float64(*max)
		r.Max = &hi
	}
	return r
}

// RowCountRange requires the table row count to lie within [min, max].
func RowCountRange(min, max int64) Rule {
	lo, hi := float64(min), float64(max)
	return Rule{Kind: RuleRowCountRange, Min: &lo, Max: &hi}
}

// Parameters renders the rule parameters for reports.
// Unbounded limits on range rules are reported as explicit nulls.
func (r Rule) Parameters() map[string]any {
	params := make(map[string]any)
	if r.Column != "" {
		params["column"] = r.Column
	}
	switch r.Kind {
	case RuleColumnListMatch:
		params["column_list"] = slices.Clone(r.ColumnList)
	case RuleInSet:
		params["value_set"] = slices.Clone(r.ValueSet)
	case RuleValueRange, RuleLengthRange, RuleRowCountRange:
		params["min_value"] = floatOrNil(r.Min)
		params["max_value"] = floatOrNil(r.Max)
	}
	if r.Mostly != nil {
		params["mostly"] = *r.Mostly
	}
	return params
}

// Equal reports whether two rules express the same constraint.
func (r Rule) Equal(other Rule) bool {
	return r.Kind == other.Kind &&
		r.Column == other.Column &&
		slices.Equal(r.ColumnList, other.ColumnList) &&
		slices.Equal(r.ValueSet, other.ValueSet) &&
		equalFloatPtr(r.Min, other.Min) &&
		equalFloatPtr(r.Max, other.Max) &&
		equalFloatPtr(r.Mostly, other.Mostly)
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// RuleSet is the ordered list of rules validated against one table.
type RuleSet struct {
	Table string `json:"table" yaml:"table"`
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	return len(rs.Rules)
}

// CountKind returns how many rules of the given kind the set holds.
func (rs RuleSet) CountKind(kind RuleKind) int {
	n := 0
	for _, r := range rs.Rules {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// Equal reports whether two rule sets hold the same rules in the same order.
func (rs RuleSet) Equal(other RuleSet) bool {
	return rs.Table == other.Table &&
		rs.Name == other.Name &&
		slices.EqualFunc(rs.Rules, other.Rules, Rule.Equal)
}
