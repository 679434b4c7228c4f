// Package assemble builds GeoJSON FeatureCollection documents from store
// results. Two strategies exist: fragment splice, for rows the store has
// already rendered as GeoJSON Feature text, and typed build, for rows
// returned as raw columns that need reshaping.
package assemble

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	"github.com/chizu-dev/chizu/internal/domain"
)

var (
	collectionPrefix = []byte(`{"type":"FeatureCollection","features":[`)
	collectionSuffix = []byte(`]}`)
)

// EmptyCollection is the document served when a query matches nothing.
var EmptyCollection = []byte(`{"type":"FeatureCollection","features":[]}`)

// SpliceFragments concatenates pre-rendered GeoJSON Feature fragments into
// one FeatureCollection document. The fragments are spliced byte for byte,
// never re-parsed, so whatever shape the store rendered passes through
// verbatim.
func SpliceFragments(fragments []json.RawMessage) []byte {
	if len(fragments) == 0 {
		out := make([]byte, len(EmptyCollection))
		copy(out, EmptyCollection)
		return out
	}

	size := len(collectionPrefix) + len(collectionSuffix) + len(fragments) - 1
	for _, f := range fragments {
		size += len(f)
	}

	out := make([]byte, 0, size)
	out = append(out, collectionPrefix...)
	for i, f := range fragments {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, f...)
	}
	return append(out, collectionSuffix...)
}

// FacilityProperties is the public property set of a facility feature.
// Field order here fixes the key order in the serialized document.
type FacilityProperties struct {
	CityCode        string `json:"cityCode"`
	CategoryCode    int    `json:"categoryCode"`
	SubcategoryCode int    `json:"subcategoryCode"`
	PostOfficeCode  string `json:"postOfficeCode"`
	Name            string `json:"name"`
	Address         string `json:"address"`
}

type facilityFeature struct {
	Type       string             `json:"type"`
	ID         string             `json:"id"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties FacilityProperties `json:"properties"`
}

type facilityCollection struct {
	Type     string            `json:"type"`
	Features []facilityFeature `json:"features"`
}

// BuildFacilityCollection converts typed facility rows into a
// FeatureCollection document. Geometries are decoded from store WKB and
// re-expressed as GeoJSON; attributes are renamed into the public
// camelCase property set.
func BuildFacilityCollection(facilities []domain.Facility) ([]byte, error) {
	fc := facilityCollection{
		Type:     "FeatureCollection",
		Features: make([]facilityFeature, 0, len(facilities)),
	}

	for _, f := range facilities {
		geom, err := wkb.Unmarshal(f.Geometry.WKB)
		if err != nil {
			return nil, fmt.Errorf("decode geometry of facility %s: %w", f.ID, err)
		}
		if _, ok := geom.(orb.Point); !ok {
			return nil, fmt.Errorf("facility %s: geometry is %s, want Point",
				f.ID, geom.GeoJSONType())
		}
		fc.Features = append(fc.Features, facilityFeature{
			Type:     "Feature",
			ID:       f.ID,
			Geometry: geojson.NewGeometry(geom),
			Properties: FacilityProperties{
				CityCode:        f.CityCode,
				CategoryCode:    f.CategoryCode,
				SubcategoryCode: f.SubcategoryCode,
				PostOfficeCode:  f.PostOfficeCode,
				Name:            f.Name,
				Address:         f.Address,
			},
		})
	}

	return json.Marshal(fc)
}
