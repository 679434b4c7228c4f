package domain

// FieldKind classifies an attribute field's declared type.
type FieldKind string

// Attribute field kinds. These cover the DBF type codes used by MLIT
// shapefiles plus the JSON value kinds seen in GeoJSON properties.
const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldFloat  FieldKind = "float"
	FieldDate   FieldKind = "date"
	FieldBool   FieldKind = "bool"
)

// SourceField is one attribute field as declared by a source file.
type SourceField struct {
	Name string
	Kind FieldKind
}

// Schema is the expected attribute layout of a source file, keyed by
// field name.
type Schema map[string]FieldKind

// AdminSchema is the attribute layout of MLIT N03 administrative-boundary
// GeoJSON files. All properties are strings, several nullable.
var AdminSchema = Schema{
	"N03_001": FieldString, // prefecture name
	"N03_002": FieldString, // subprefecture name (Hokkaido only)
	"N03_003": FieldString, // county / designated-city name
	"N03_004": FieldString, // municipality name
	"N03_005": FieldString, // administrative division seq (newer files)
	"N03_007": FieldString, // municipality code
}

// FacilitySchema is the attribute layout of MLIT P30 post-office
// shapefile DBF tables.
var FacilitySchema = Schema{
	"P30_001": FieldString, // municipality code
	"P30_002": FieldNumber, // category code
	"P30_003": FieldNumber, // subcategory code
	"P30_004": FieldString, // post office code
	"P30_005": FieldString, // name
	"P30_006": FieldString, // address
}
