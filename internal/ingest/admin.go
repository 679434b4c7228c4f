package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/chizu-dev/chizu/internal/domain"
)

// MLIT administrative-boundary property names.
const (
	attrRegionName       = "N03_001"
	attrSubregionName    = "N03_002"
	attrCountyName       = "N03_003"
	attrMunicipalityName = "N03_004"
	attrMunicipalityCode = "N03_007"
)

// crsPattern extracts the EPSG code from a GeoJSON crs member such as
// "urn:ogc:def:crs:EPSG::6668".
var crsPattern = regexp.MustCompile(`urn:ogc:def:crs:EPSG::(\d+)`)

// AdminSource is a parsed MLIT N03 administrative-boundary file. Features
// are split into region rows (prefecture outline parts, which carry no
// municipality attributes) and municipality rows.
type AdminSource struct {
	EPSG           int // 0 when the file declares no crs member
	Fields         []domain.SourceField
	Regions        []Record
	Municipalities []Record
}

// ReadAdminSource parses an administrative-boundary GeoJSON stream.
func ReadAdminSource(r io.Reader) (*AdminSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	src := &AdminSource{EPSG: detectEPSG(fc)}

	seen := map[string]bool{}
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d has no geometry", i)
		}

		rec := Record{Index: i, Attrs: map[string]string{}, Geometry: f.Geometry}
		for name, value := range f.Properties {
			s, kind, ok := stringifyProperty(value)
			if !ok {
				continue
			}
			rec.Attrs[name] = s
			if !seen[name] {
				seen[name] = true
				src.Fields = append(src.Fields, domain.SourceField{Name: name, Kind: kind})
			}
		}

		if isRegionFeature(rec) {
			src.Regions = append(src.Regions, rec)
		} else {
			src.Municipalities = append(src.Municipalities, rec)
		}
	}

	return src, nil
}

// isRegionFeature reports whether a feature is part of the bare prefecture
// outline: such features carry no subregion, county or municipality name.
func isRegionFeature(rec Record) bool {
	for _, name := range []string{attrSubregionName, attrCountyName, attrMunicipalityName} {
		if _, ok := rec.Attr(name); ok {
			return false
		}
	}
	return true
}

func detectEPSG(fc *geojson.FeatureCollection) int {
	crs, ok := fc.ExtraMembers["crs"].(map[string]interface{})
	if !ok {
		return 0
	}
	props, ok := crs["properties"].(map[string]interface{})
	if !ok {
		return 0
	}
	name, ok := props["name"].(string)
	if !ok {
		return 0
	}
	m := crsPattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	epsg, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return epsg
}

func stringifyProperty(v interface{}) (string, domain.FieldKind, bool) {
	switch t := v.(type) {
	case nil:
		return "", "", false
	case string:
		return t, domain.FieldString, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), domain.FieldNumber, true
	case bool:
		return strconv.FormatBool(t), domain.FieldBool, true
	default:
		return fmt.Sprintf("%v", t), domain.FieldString, true
	}
}
