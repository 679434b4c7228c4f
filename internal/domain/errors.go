package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
)

// Specific errors.
var (
	ErrLayerNotFound     = fmt.Errorf("layer: %w", ErrNotFound)
	ErrInvalidTile       = fmt.Errorf("tile: %w", ErrInvalidInput)
	ErrInvalidCoordinate = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrInvalidSRID       = fmt.Errorf("srid: %w", ErrInvalidInput)
	ErrInvalidRegionCode = fmt.Errorf("region code: %w", ErrInvalidInput)
	ErrReplaceDeclined   = errors.New("replace declined by operator")
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
	Err        error       // Specific sentinel the validation maps to
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the specific sentinel when one is set, ErrInvalidInput
// otherwise.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// ProjectionError reports a point that could not be reprojected, either
// because an EPSG code is unknown or because the point lies outside the
// valid domain of the target system.
type ProjectionError struct {
	FromSRID int
	ToSRID   int
	Message  string
}

// Error implements the error interface.
func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection error EPSG:%d -> EPSG:%d: %s",
		e.FromSRID, e.ToSRID, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ProjectionError) Unwrap() error {
	return ErrUnsupported
}

// QueryError represents an error during a spatial query operation.
type QueryError struct {
	Layer string // Layer name
	Tile  string // Tile address, if the query was tile-scoped
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Tile != "" {
		return fmt.Sprintf("query error in layer %s for tile %s: %v",
			e.Layer, e.Tile, e.Err)
	}
	return fmt.Sprintf("query error in layer %s: %v", e.Layer, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// SchemaError reports a mismatch between a source file's fields and the
// schema a dataset expects.
type SchemaError struct {
	Field    string // Source field name
	Expected string // Expected type, empty for an unexpected field
	Actual   string // Actual type as declared by the source
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("schema error: unexpected field %q (%s)", e.Field, e.Actual)
	}
	return fmt.Sprintf("schema error: field %q has type %s, expected %s",
		e.Field, e.Actual, e.Expected)
}

// Unwrap returns the underlying error type.
func (e *SchemaError) Unwrap() error {
	return ErrInvalidInput
}

// MissingFieldError reports a source record without a field the dataset
// requires.
type MissingFieldError struct {
	Field  string // Missing field name
	Record int    // Zero-based record index in the source
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing required field %q", e.Record, e.Field)
}

// Unwrap returns the underlying error type.
func (e *MissingFieldError) Unwrap() error {
	return ErrInvalidInput
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
