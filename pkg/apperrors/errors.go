package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrMalformedMeasurement = errors.New("malformed measurement")
	ErrUnknownSource        = errors.New("unknown table source")
	ErrNoTables             = errors.New("no input tables")
	ErrColumnNotFound       = errors.New("column not found")
)
