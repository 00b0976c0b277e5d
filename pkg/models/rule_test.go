package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRule_ConstructorsCopySlices(t *testing.T) {
	columns := []string{"emp_no", "title"}
	values := []string{"M", "F"}

	list := ColumnListMatch(columns)
	set := InSet("gender", values)
	columns[0] = "changed"
	values[0] = "X"

	assert.Equal(t, []string{"emp_no", "title"}, list.ColumnList)
	assert.Equal(t, []string{"M", "F"}, set.ValueSet)
}

func TestRule_Parameters(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want map[string]any
	}{
		{"unique", Unique("emp_no"), map[string]any{"column": "emp_no"}},
		{"mostly", NotNullMostly("title", 0.5), map[string]any{"column": "title", "mostly": 0.5}},
		{"value range", ValueRange("salary", 1, 2), map[string]any{"column": "salary", "min_value": 1.0, "max_value": 2.0}},
		{"open length", LengthRange("last_name", 2, nil), map[string]any{"column": "last_name", "min_value": 2.0, "max_value": nil}},
		{"row count", RowCountRange(9, 11), map[string]any{"min_value": 9.0, "max_value": 11.0}},
		{"column list", ColumnListMatch([]string{"a"}), map[string]any{"column_list": []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Parameters())
		})
	}
}

func TestRule_Equal(t *testing.T) {
	assert.True(t, NotNullMostly("a", 0.5).Equal(NotNullMostly("a", 0.5)))
	assert.False(t, NotNullMostly("a", 0.5).Equal(NotNull("a")))
	assert.False(t, ValueRange("a", 1, 2).Equal(ValueRange("a", 1, 3)))
	assert.True(t, Unique("a").Kind.IsColumnRule())
	assert.False(t, RowCountRange(1, 2).Kind.IsColumnRule())
}

func TestRuleSet_CountKind(t *testing.T) {
	rs := RuleSet{Rules: []Rule{NotNull("a"), NotNull("b"), Unique("a")}}
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, 2, rs.CountKind(RuleNotNull))
	assert.Equal(t, 0, rs.CountKind(RuleInSet))
}
