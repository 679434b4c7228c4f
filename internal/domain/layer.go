package domain

// LayerName identifies a queryable feature layer.
type LayerName string

// The layers served by the tile API.
const (
	LayerRegions        LayerName = "regions"
	LayerMunicipalities LayerName = "municipalities"
	LayerFacilities     LayerName = "facilities"
)

// Layer describes a persisted feature layer.
type Layer struct {
	Name         LayerName // Public layer name, also the table name
	GeometryType string    // Geometry type (POINT, MULTIPOLYGON, etc.)
	SRID         int       // SRID geometries are stored in
	KeyColumn    string    // Column carrying the dataset key prefix
	Schema       Schema    // Expected attribute schema of source files
}

// Layers is the registry of all served layers.
var Layers = map[LayerName]Layer{
	LayerRegions: {
		Name:         LayerRegions,
		GeometryType: "MULTIPOLYGON",
		SRID:         SRIDStore,
		KeyColumn:    "code",
		Schema:       AdminSchema,
	},
	LayerMunicipalities: {
		Name:         LayerMunicipalities,
		GeometryType: "MULTIPOLYGON",
		SRID:         SRIDStore,
		KeyColumn:    "code",
		Schema:       AdminSchema,
	},
	LayerFacilities: {
		Name:         LayerFacilities,
		GeometryType: "POINT",
		SRID:         SRIDStore,
		KeyColumn:    "city_code",
		Schema:       FacilitySchema,
	},
}

// KnownLayer returns the layer definition for a public layer name.
func KnownLayer(name string) (Layer, bool) {
	l, ok := Layers[LayerName(name)]
	return l, ok
}

// IsPointLayer returns true if the layer contains point geometries.
func (l *Layer) IsPointLayer() bool {
	return l.GeometryType == "POINT" || l.GeometryType == "MULTIPOINT"
}

// IsPolygonLayer returns true if the layer contains polygon geometries.
func (l *Layer) IsPolygonLayer() bool {
	return l.GeometryType == "POLYGON" || l.GeometryType == "MULTIPOLYGON"
}
