package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkb"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/projection"
)

// Transformer converts source records into store-ready features: required
// attributes extracted by name, geometry reprojected into the store CRS,
// string attributes copied verbatim. It performs no I/O.
type Transformer struct {
	projector *projection.Transformer
}

// NewTransformer returns a record transformer using the given projector.
func NewTransformer(p *projection.Transformer) *Transformer {
	return &Transformer{projector: p}
}

// Region converts a prefecture-outline record. The region code comes from
// the operator, not the file; the file only carries the region name.
func (t *Transformer) Region(rec Record, key domain.DatasetKey, sourceEPSG int) (domain.Feature, error) {
	name, ok := rec.Attr(attrRegionName)
	if !ok {
		return domain.Feature{}, &domain.MissingFieldError{Field: attrRegionName, Record: rec.Index}
	}

	geom, err := t.storeGeometry(rec, sourceEPSG)
	if err != nil {
		return domain.Feature{}, err
	}

	return domain.Feature{
		LayerName: string(domain.LayerRegions),
		Geometry:  geom,
		Properties: map[string]interface{}{
			"code": string(key),
			"name": name,
		},
	}, nil
}

// Municipality converts a municipality record. The area (county or
// designated-city name) is optional and stored as null when absent.
func (t *Transformer) Municipality(rec Record, sourceEPSG int) (domain.Feature, error) {
	code, ok := rec.Attr(attrMunicipalityCode)
	if !ok {
		return domain.Feature{}, &domain.MissingFieldError{Field: attrMunicipalityCode, Record: rec.Index}
	}
	name, ok := rec.Attr(attrMunicipalityName)
	if !ok {
		return domain.Feature{}, &domain.MissingFieldError{Field: attrMunicipalityName, Record: rec.Index}
	}

	var area interface{}
	if v, ok := rec.Attr(attrCountyName); ok {
		area = v
	}

	geom, err := t.storeGeometry(rec, sourceEPSG)
	if err != nil {
		return domain.Feature{}, err
	}

	return domain.Feature{
		LayerName: string(domain.LayerMunicipalities),
		Geometry:  geom,
		Properties: map[string]interface{}{
			"code": code,
			"area": area,
			"name": name,
		},
	}, nil
}

// Facility converts a point-facility record.
func (t *Transformer) Facility(rec Record, sourceEPSG int) (domain.Feature, error) {
	attrs := map[string]interface{}{}
	for _, req := range []struct {
		source  string
		column  string
		numeric bool
	}{
		{attrFacilityCityCode, "city_code", false},
		{attrFacilityCategory, "category_code", true},
		{attrFacilitySubcategory, "subcategory_code", true},
		{attrFacilityOfficeCode, "post_office_code", false},
		{attrFacilityName, "name", false},
		{attrFacilityAddress, "address", false},
	} {
		v, ok := rec.Attr(req.source)
		if !ok {
			return domain.Feature{}, &domain.MissingFieldError{Field: req.source, Record: rec.Index}
		}
		if req.numeric {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return domain.Feature{}, fmt.Errorf("record %d: field %s: %w",
					rec.Index, req.source, err)
			}
			attrs[req.column] = n
		} else {
			attrs[req.column] = v
		}
	}

	geom, err := t.storeGeometry(rec, sourceEPSG)
	if err != nil {
		return domain.Feature{}, err
	}

	return domain.Feature{
		LayerName:  string(domain.LayerFacilities),
		Geometry:   geom,
		Properties: attrs,
	}, nil
}

func (t *Transformer) storeGeometry(rec Record, sourceEPSG int) (domain.Geometry, error) {
	projected, err := t.projector.Geometry(rec.Geometry, sourceEPSG, domain.SRIDStore)
	if err != nil {
		return domain.Geometry{}, err
	}

	data, err := wkb.Marshal(projected)
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("record %d: encode geometry: %w", rec.Index, err)
	}

	return domain.Geometry{
		Type: strings.ToUpper(projected.GeoJSONType()),
		WKB:  data,
		SRID: domain.SRIDStore,
	}, nil
}
