package ingest

import (
	"github.com/paulmach/orb"
)

// Record is one source feature: its attribute values keyed by source field
// name and its geometry in the source CRS. Absent and null attributes are
// not present in the map.
type Record struct {
	Index    int // zero-based position in the source file
	Attrs    map[string]string
	Geometry orb.Geometry
}

// Attr returns an attribute value and whether it is present and non-empty.
func (r Record) Attr(name string) (string, bool) {
	v, ok := r.Attrs[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
