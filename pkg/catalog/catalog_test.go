package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

func TestDefault_EmployeeSuites(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"departments", "dept_emp", "dept_manager", "employees", "salaries", "titles"}, c.Tables())

	tests := []struct {
		table string
		rules int
	}{
		{"employees", 7},
		{"salaries", 4},
		{"titles", 3},
		{"departments", 5},
		{"dept_emp", 3},
		{"dept_manager", 4},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			rs, ok := c.Lookup(tt.table)
			require.True(t, ok)
			assert.Equal(t, tt.table+"_suite", rs.Name)
			assert.Equal(t, tt.rules, rs.Len())
			assert.Equal(t, 1, rs.CountKind(models.RuleColumnListMatch))
			assert.Equal(t, models.RuleColumnListMatch, rs.Rules[0].Kind)
		})
	}
}

func TestDefault_EmployeeDomainRules(t *testing.T) {
	rs, ok := Default().Lookup("employees")
	require.True(t, ok)

	assert.True(t, rs.Rules[5].Equal(models.InSet("gender", []string{"M", "F"})))
	assert.True(t, rs.Rules[6].Equal(models.ValueRange("emp_no", 10001, 999999)))

	salaries, ok := Default().Lookup("salaries")
	require.True(t, ok)
	assert.True(t, salaries.Rules[3].Equal(models.ValueRange("salary", 30000, 200000)))
}

func TestLookup_MissAndCaseInsensitive(t *testing.T) {
	c := Default()

	_, ok := c.Lookup("payroll")
	assert.False(t, ok)

	rs, ok := c.Lookup("Employees")
	require.True(t, ok)
	assert.Equal(t, "employees", rs.Table)
}

func TestLookup_ReturnsIndependentCopy(t *testing.T) {
	c := Default()
	first, _ := c.Lookup("titles")
	first.Rules[0] = models.NotNull("mutated")

	second, _ := c.Lookup("titles")
	assert.Equal(t, models.RuleColumnListMatch, second.Rules[0].Kind)
}

func TestWithMapping(t *testing.T) {
	c, unknown := Default().WithMapping(map[string]string{
		"emp_extract": "employees_suite",
		"titles":      "salaries_suite",
		"payroll":     "payroll_suite",
	})
	assert.Equal(t, []string{"payroll"}, unknown)

	rs, ok := c.Lookup("EMP_EXTRACT")
	require.True(t, ok)
	assert.Equal(t, "employees_suite", rs.Name)
	assert.Equal(t, "emp_extract", rs.Table)
	assert.Len(t, rs.Rules, 7)

	rs, ok = c.Lookup("titles")
	require.True(t, ok)
	assert.Equal(t, "salaries_suite", rs.Name)
	assert.Equal(t, "titles", rs.Table)

	rs, ok = c.Lookup("employees")
	require.True(t, ok)
	assert.Equal(t, "employees", rs.Table)

	assert.False(t, c.Has("payroll"))
	assert.True(t, c.Has("emp_extract"))
	assert.Contains(t, c.Tables(), "emp_extract")
	assert.NotContains(t, c.Tables(), "payroll")
}

func TestFromConfig_WarnsOnUnknownSuite(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	c, err := FromConfig(config.CatalogConfig{Suites: map[string]string{
		"emp_extract": "employees_suite",
		"hr_core":     "hr_core_suite",
	}}, zap.New(core))
	require.NoError(t, err)

	rs, ok := c.Lookup("emp_extract")
	require.True(t, ok)
	assert.Equal(t, "employees_suite", rs.Name)

	_, ok = c.Lookup("hr_core")
	assert.False(t, ok)

	entries := logs.FilterMessage("Catalog mapping names an unknown suite").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hr_core", entries[0].ContextMap()["table"])
	assert.Equal(t, "hr_core_suite", entries[0].ContextMap()["suite"])
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
suites:
  - table: Payroll
    rules:
      - kind: column_list_match
        column_list: [emp_no, amount]
      - kind: not_null
        column: amount
        mostly: 0.9
      - kind: value_range
        column: amount
        min_value: 0
      - kind: in_set
        column: currency
        value_set: [USD, EUR]
`))
	require.NoError(t, err)

	rs, ok := c.Lookup("payroll")
	require.True(t, ok)
	assert.Equal(t, "payroll_suite", rs.Name)
	require.Len(t, rs.Rules, 4)
	assert.True(t, rs.Rules[1].Equal(models.NotNullMostly("amount", 0.9)))
	assert.Nil(t, rs.Rules[2].Max)
	assert.Equal(t, []string{"USD", "EUR"}, rs.Rules[3].ValueSet)
}

func TestParse_InvalidRules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", "suites:\n  - table: t\n    rules:\n      - kind: matches_regex\n        column: a\n"},
		{"missing column", "suites:\n  - table: t\n    rules:\n      - kind: unique\n"},
		{"empty value set", "suites:\n  - table: t\n    rules:\n      - kind: in_set\n        column: a\n"},
		{"unbounded range", "suites:\n  - table: t\n    rules:\n      - kind: value_range\n        column: a\n"},
		{"inverted range", "suites:\n  - table: t\n    rules:\n      - {kind: value_range, column: a, min_value: 5, max_value: 1}\n"},
		{"missing table", "suites:\n  - name: orphan\n"},
		{"not yaml", "suites: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.CatalogConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, c.Tables(), 6)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suites:\n  - table: titles\n    name: titles_v2\n    rules:\n      - {kind: not_null, column: title}\n"), 0644))

	c, err = FromConfig(config.CatalogConfig{File: path, Suites: map[string]string{"title_history": "titles_v2"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"title_history", "titles"}, c.Tables())
	rs, ok := c.Lookup("title_history")
	require.True(t, ok)
	assert.Equal(t, "titles_v2", rs.Name)
	require.Len(t, rs.Rules, 1)

	_, err = FromConfig(config.CatalogConfig{File: filepath.Join(t.TempDir(), "missing.yaml")}, zap.NewNop())
	assert.Error(t, err)
}
