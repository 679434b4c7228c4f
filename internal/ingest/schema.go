// Package ingest reads MLIT vector source files, validates their attribute
// schemas and transforms their records into store-ready features.
package ingest

import (
	"github.com/chizu-dev/chizu/internal/domain"
)

// ValidateSchema checks every field declared by a source file against the
// expected schema. A source field absent from the schema or declared with a
// different type fails validation. Expected fields missing from the source
// are not an error here; required attributes are enforced per record by the
// transformer.
func ValidateSchema(source []domain.SourceField, expected domain.Schema) error {
	for _, f := range source {
		want, ok := expected[f.Name]
		if !ok {
			return &domain.SchemaError{Field: f.Name, Actual: string(f.Kind)}
		}
		if f.Kind != want {
			return &domain.SchemaError{
				Field:    f.Name,
				Expected: string(want),
				Actual:   string(f.Kind),
			}
		}
	}
	return nil
}
