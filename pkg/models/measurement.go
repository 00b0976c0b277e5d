package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/datacheck/pkg/apperrors"
	"github.com/ekaya-inc/datacheck/pkg/jsonutil"
)

// MeasurementKind identifies what a statistical measurement describes.
type MeasurementKind string

const (
	KindSize         MeasurementKind = "Size"
	KindCompleteness MeasurementKind = "Completeness"
	KindUniqueness   MeasurementKind = "Uniqueness"
	KindMinimum      MeasurementKind = "Minimum"
	KindMaximum      MeasurementKind = "Maximum"
	KindMinLength    MeasurementKind = "MinLength"
	KindUnknown      MeasurementKind = "Unknown"
)

// WildcardColumn is the table-wide column argument, e.g. Completeness(*).
const WildcardColumn = "*"

var knownKinds = map[string]MeasurementKind{
	string(KindSize):         KindSize,
	string(KindCompleteness): KindCompleteness,
	string(KindUniqueness):   KindUniqueness,
	string(KindMinimum):      KindMinimum,
	string(KindMaximum):      KindMaximum,
	string(KindMinLength):    KindMinLength,
}

// IsTableScoped returns true for kinds that carry no column argument.
func (k MeasurementKind) IsTableScoped() bool {
	return k == KindSize
}

// Measurement is one statistic recorded for a table, as read from a metrics file.
// Analyzer encodes the kind and, for column-scoped kinds, the column: "Completeness(first_name)".
// Value may be written as a JSON number or a string.
type Measurement struct {
	Analyzer string          `json:"analyzer"`
	Value    json.RawMessage `json:"value"`

	// Deequ metric-repository form. Used when Analyzer is empty.
	Entity   string `json:"entity,omitempty"`
	Instance string `json:"instance,omitempty"`
	Name     string `json:"name,omitempty"`
}

// NewMeasurement builds a measurement with a numeric value.
func NewMeasurement(analyzer string, value float64) Measurement {
	return Measurement{
		Analyzer: analyzer,
		Value:    json.RawMessage(strconv.FormatFloat(value, 'g', -1, 64)),
	}
}

// AnalyzerName returns the analyzer string, deriving it from the repository form if needed.
func (m Measurement) AnalyzerName() string {
	if m.Analyzer != "" || m.Name == "" {
		return m.Analyzer
	}
	if strings.EqualFold(m.Entity, "Dataset") || m.Instance == "" {
		return m.Name + "()"
	}
	return fmt.Sprintf("%s(%s)", m.Name, m.Instance)
}

// DecodedMeasurement is a measurement with its analyzer name resolved to a kind and column.
type DecodedMeasurement struct {
	Kind     MeasurementKind
	Analyzer string // analyzer name as written, kept for logging
	Column   string // empty for table-scoped kinds
	Value    float64
}

// Key identifies the (kind, column) pair a measurement describes.
func (d DecodedMeasurement) Key() string {
	return string(d.Kind) + "|" + d.Column
}

// Decode resolves the analyzer name and parses the value.
// Unknown analyzer kinds decode successfully with Kind == KindUnknown and no value parsing.
// A malformed analyzer expression or a non-numeric value returns ErrMalformedMeasurement.
func (m Measurement) Decode() (DecodedMeasurement, error) {
	analyzer := strings.TrimSpace(m.AnalyzerName())
	name, args, err := splitAnalyzer(analyzer)
	if err != nil {
		return DecodedMeasurement{Kind: KindUnknown, Analyzer: analyzer}, err
	}

	kind, ok := knownKinds[name]
	if !ok {
		return DecodedMeasurement{Kind: KindUnknown, Analyzer: analyzer}, nil
	}

	decoded := DecodedMeasurement{Kind: kind, Analyzer: analyzer}
	if !kind.IsTableScoped() {
		column, err := columnArgument(args)
		if err != nil {
			return DecodedMeasurement{Kind: KindUnknown, Analyzer: analyzer},
				fmt.Errorf("%w: analyzer %q: %v", apperrors.ErrMalformedMeasurement, analyzer, err)
		}
		decoded.Column = column
	}

	value, err := jsonutil.FlexibleFloat(m.Value)
	if err != nil {
		return decoded, fmt.Errorf("%w: analyzer %q: %v", apperrors.ErrMalformedMeasurement, analyzer, err)
	}
	decoded.Value = value
	return decoded, nil
}

// splitAnalyzer splits "Kind(args)" into its name and raw argument string.
func splitAnalyzer(analyzer string) (string, string, error) {
	open := strings.IndexByte(analyzer, '(')
	if open <= 0 {
		if analyzer != "" && !strings.ContainsAny(analyzer, "()") {
			// Bare names like "Size" are accepted.
			return analyzer, "", nil
		}
		return "", "", fmt.Errorf("%w: analyzer %q", apperrors.ErrMalformedMeasurement, analyzer)
	}
	if !strings.HasSuffix(analyzer, ")") {
		return "", "", fmt.Errorf("%w: analyzer %q is missing a closing parenthesis", apperrors.ErrMalformedMeasurement, analyzer)
	}
	return analyzer[:open], analyzer[open+1 : len(analyzer)-1], nil
}

// columnArgument extracts the column from an argument list such as
// "first_name", "first_name,None" or "List(emp_no),None".
func columnArgument(args string) (string, error) {
	args = strings.TrimSpace(args)
	if strings.HasPrefix(args, "List(") {
		end := strings.IndexByte(args, ')')
		if end < 0 {
			return "", fmt.Errorf("unterminated column list")
		}
		inner := strings.Split(args[len("List("):end], ",")
		if len(inner) != 1 {
			return "", fmt.Errorf("expected a single column, got %d", len(inner))
		}
		args = inner[0]
	} else if comma := strings.IndexByte(args, ','); comma >= 0 {
		args = args[:comma]
	}

	column := strings.TrimSpace(args)
	if column == "" || strings.EqualFold(column, "None") {
		return "", fmt.Errorf("missing column")
	}
	if strings.ContainsAny(column, "()") {
		return "", fmt.Errorf("invalid column %q", column)
	}
	return column, nil
}

// MetricsDocument is the on-disk shape of a metrics file.
type MetricsDocument struct {
	Table   string        `json:"table,omitempty"`
	Metrics []Measurement `json:"metrics"`
}
