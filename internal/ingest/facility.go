package ingest

import (
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/chizu-dev/chizu/internal/domain"
)

// MLIT post-office attribute names.
const (
	attrFacilityCityCode    = "P30_001"
	attrFacilityCategory    = "P30_002"
	attrFacilitySubcategory = "P30_003"
	attrFacilityOfficeCode  = "P30_004"
	attrFacilityName        = "P30_005"
	attrFacilityAddress     = "P30_006"
)

// FacilitySource is a parsed MLIT P30 point-facility shapefile.
type FacilitySource struct {
	Fields  []domain.SourceField
	Records []Record
}

// ReadFacilitySource opens a point-facility shapefile set (.shp plus its
// sidecar .dbf) and reads every record.
func ReadFacilitySource(path string) (*FacilitySource, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	fields := reader.Fields()
	src := &FacilitySource{Fields: make([]domain.SourceField, 0, len(fields))}
	for _, f := range fields {
		src.Fields = append(src.Fields, domain.SourceField{
			Name: f.String(),
			Kind: dbfFieldKind(f.Fieldtype),
		})
	}

	for reader.Next() {
		row, shape := reader.Shape()

		point, err := pointOf(shape)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row, err)
		}

		rec := Record{Index: row, Attrs: map[string]string{}, Geometry: point}
		for i, f := range fields {
			value := strings.TrimSpace(reader.ReadAttribute(row, i))
			if value == "" {
				continue
			}
			rec.Attrs[f.String()] = value
		}
		src.Records = append(src.Records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}

	return src, nil
}

func pointOf(shape shp.Shape) (orb.Point, error) {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	default:
		return orb.Point{}, fmt.Errorf("shape type %T: %w", shape, domain.ErrUnsupported)
	}
}

// dbfFieldKind maps DBF field type codes onto schema kinds.
func dbfFieldKind(code byte) domain.FieldKind {
	switch code {
	case 'C':
		return domain.FieldString
	case 'N':
		return domain.FieldNumber
	case 'F':
		return domain.FieldFloat
	case 'D':
		return domain.FieldDate
	case 'L':
		return domain.FieldBool
	default:
		return domain.FieldString
	}
}
