package domain

// Facility is a typed point-facility row as returned by the store. The
// serving layer reshapes these into GeoJSON features with a renamed,
// fixed-order property set instead of passing columns through verbatim.
type Facility struct {
	ID              string
	CityCode        string
	CategoryCode    int
	SubcategoryCode int
	PostOfficeCode  string
	Name            string
	Address         string
	Geometry        Geometry // point, WKB in the store CRS
}
