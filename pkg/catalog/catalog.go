// Package catalog holds the statically declared rule sets, keyed by table identifier.
package catalog

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/datacheck/pkg/config"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

// Catalog maps table identifiers to rule sets. It is read-only after construction
// and safe for concurrent lookups.
type Catalog struct {
	suites  map[string]models.RuleSet
	byName  map[string]models.RuleSet
	mapping map[string]string
}

// New builds a catalog from rule sets. Table identifiers are lowercased and a
// missing suite name defaults to "<table>_suite". Later sets replace earlier ones.
func New(sets ...models.RuleSet) *Catalog {
	c := &Catalog{
		suites: make(map[string]models.RuleSet, len(sets)),
		byName: make(map[string]models.RuleSet, len(sets)),
	}
	for _, rs := range sets {
		rs.Table = strings.ToLower(rs.Table)
		if rs.Name == "" {
			rs.Name = DefaultSuiteName(rs.Table)
		}
		rs.Rules = slices.Clone(rs.Rules)
		if prev, ok := c.suites[rs.Table]; ok {
			delete(c.byName, prev.Name)
		}
		c.suites[rs.Table] = rs
		c.byName[rs.Name] = rs
	}
	return c
}

// Default returns the built-in employee-database catalog.
func Default() *Catalog {
	return New(employeeSuites()...)
}

// DefaultSuiteName is the suite name used when none is configured.
func DefaultSuiteName(table string) string {
	return table + "_suite"
}

// FromConfig builds the catalog described by cfg: the YAML file when one is
// configured, otherwise the built-in suites, routed through the cfg.Suites
// table-to-suite mapping.
func FromConfig(cfg config.CatalogConfig, logger *zap.Logger) (*Catalog, error) {
	c := Default()
	if cfg.File != "" {
		loaded, err := LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	mapped, unknown := c.WithMapping(cfg.Suites)
	for _, table := range unknown {
		logger.Warn("Catalog mapping names an unknown suite",
			zap.String("table", table),
			zap.String("suite", cfg.Suites[table]))
	}
	return mapped, nil
}

// WithMapping returns a copy of the catalog that resolves tables through
// mapping (table identifier to suite name). Tables without an entry keep their
// own suite. The returned slice lists the sorted tables whose suite name
// matches no suite; those entries are ignored.
func (c *Catalog) WithMapping(mapping map[string]string) (*Catalog, []string) {
	out := &Catalog{suites: c.suites, byName: c.byName, mapping: make(map[string]string, len(mapping))}
	var unknown []string
	for table, name := range mapping {
		if name == "" {
			continue
		}
		if _, ok := c.byName[name]; !ok {
			unknown = append(unknown, table)
			continue
		}
		out.mapping[strings.ToLower(table)] = name
	}
	sort.Strings(unknown)
	return out, unknown
}

// Lookup returns the rule set for a table identifier: the mapped suite when
// the table has a mapping entry, otherwise the table's own suite. A miss is
// not an error.
func (c *Catalog) Lookup(table string) (models.RuleSet, bool) {
	rs, ok := c.resolve(strings.ToLower(table))
	if !ok {
		return models.RuleSet{}, false
	}
	rs.Rules = slices.Clone(rs.Rules)
	return rs, true
}

func (c *Catalog) resolve(table string) (models.RuleSet, bool) {
	if name, ok := c.mapping[table]; ok {
		rs := c.byName[name]
		rs.Table = table
		return rs, true
	}
	rs, ok := c.suites[table]
	return rs, ok
}

// Has reports whether the catalog carries a rule set for table.
func (c *Catalog) Has(table string) bool {
	_, ok := c.resolve(strings.ToLower(table))
	return ok
}

// Tables returns the known table identifiers, mapped ones included, in sorted order.
func (c *Catalog) Tables() []string {
	tables := make([]string, 0, len(c.suites)+len(c.mapping))
	for t := range c.suites {
		tables = append(tables, t)
	}
	for t := range c.mapping {
		if _, ok := c.suites[t]; !ok {
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)
	return tables
}

type catalogFile struct {
	Suites []models.RuleSet `yaml:"suites"`
}

// LoadFile reads a YAML catalog:
//
//	suites:
//	  - table: employees
//	    name: employees_suite
//	    rules:
//	      - {kind: unique, column: emp_no}
//	      - {kind: value_range, column: emp_no, min_value: 10001, max_value: 999999}
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML catalog content.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for _, rs := range file.Suites {
		if rs.Table == "" {
			return nil, fmt.Errorf("catalog suite %q has no table", rs.Name)
		}
		for i, r := range rs.Rules {
			if err := validateRule(r); err != nil {
				return nil, fmt.Errorf("catalog table %s rule %d: %w", rs.Table, i, err)
			}
		}
	}
	return New(file.Suites...), nil
}

func validateRule(r models.Rule) error {
	switch r.Kind {
	case models.RuleColumnListMatch:
		if len(r.ColumnList) == 0 {
			return fmt.Errorf("column_list_match requires column_list")
		}
		return nil
	case models.RuleRowCountRange:
		if r.Min == nil && r.Max == nil {
			return fmt.Errorf("row_count_range requires min_value or max_value")
		}
		return nil
	case models.RuleUnique, models.RuleNotNull, models.RuleInSet, models.RuleValueRange, models.RuleLengthRange:
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}

	if r.Column == "" {
		return fmt.Errorf("%s requires column", r.Kind)
	}
	if r.Mostly != nil && (*r.Mostly < 0 || *r.Mostly > 1) {
		return fmt.Errorf("mostly must be within [0, 1]")
	}
	switch r.Kind {
	case models.RuleInSet:
		if len(r.ValueSet) == 0 {
			return fmt.Errorf("in_set requires value_set")
		}
	case models.RuleValueRange, models.RuleLengthRange:
		if r.Min == nil && r.Max == nil {
			return fmt.Errorf("%s requires min_value or max_value", r.Kind)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("%s min_value exceeds max_value", r.Kind)
		}
	}
	return nil
}
