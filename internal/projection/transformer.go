// Package projection reprojects coordinates between the EPSG systems the
// service understands. All functions are pure and safe for concurrent use.
package projection

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/chizu-dev/chizu/internal/domain"
)

// Transformer converts points and geometries between EPSG coordinate
// systems. The zero value is ready to use; it holds no state.
type Transformer struct{}

// New returns a Transformer.
func New() *Transformer {
	return &Transformer{}
}

func identity(p orb.Point) orb.Point { return p }

// pairs maps (from, to) SRID pairs to the projection to apply. JGD2000 and
// JGD2011 are geographic systems whose degrees differ from WGS84 by far less
// than web-map display resolution, so they share the WGS84 spherical
// Mercator math.
var pairs = map[[2]int]orb.Projection{}

func init() {
	geographic := []int{domain.SRIDWGS84, domain.SRIDJGD2000, domain.SRIDJGD2011}
	for _, from := range geographic {
		pairs[[2]int{from, domain.SRIDWebMercator}] = project.WGS84.ToMercator
		pairs[[2]int{domain.SRIDWebMercator, from}] = project.Mercator.ToWGS84
		for _, to := range geographic {
			pairs[[2]int{from, to}] = identity
		}
	}
	pairs[[2]int{domain.SRIDWebMercator, domain.SRIDWebMercator}] = identity
}

func lookup(fromSRID, toSRID int) (orb.Projection, error) {
	proj, ok := pairs[[2]int{fromSRID, toSRID}]
	if !ok {
		return nil, &domain.ProjectionError{
			FromSRID: fromSRID,
			ToSRID:   toSRID,
			Message:  "no projection between these EPSG codes",
		}
	}
	return proj, nil
}

// checkDomain rejects geographic input outside the valid degree range, and
// poles when projecting to Mercator where the math diverges.
func checkDomain(p orb.Point, fromSRID, toSRID int) error {
	if !domain.IsGeographicSRID(fromSRID) {
		return nil
	}
	if p[0] < -180 || p[0] > 180 || p[1] < -90 || p[1] > 90 {
		return &domain.ProjectionError{
			FromSRID: fromSRID,
			ToSRID:   toSRID,
			Message:  "coordinate outside geographic domain",
		}
	}
	if toSRID == domain.SRIDWebMercator && (p[1] <= -90 || p[1] >= 90) {
		return &domain.ProjectionError{
			FromSRID: fromSRID,
			ToSRID:   toSRID,
			Message:  "latitude at pole cannot be projected to Web Mercator",
		}
	}
	return nil
}

// Point reprojects a single point from one EPSG system to another.
func (t *Transformer) Point(p orb.Point, fromSRID, toSRID int) (orb.Point, error) {
	proj, err := lookup(fromSRID, toSRID)
	if err != nil {
		return orb.Point{}, err
	}
	if err := checkDomain(p, fromSRID, toSRID); err != nil {
		return orb.Point{}, err
	}
	return proj(p), nil
}

// Transform reprojects a coordinate into the target EPSG system.
func (t *Transformer) Transform(c domain.Coordinate, toSRID int) (domain.Coordinate, error) {
	p, err := t.Point(orb.Point{c.X, c.Y}, c.SRID, toSRID)
	if err != nil {
		return domain.Coordinate{}, err
	}
	return domain.Coordinate{X: p[0], Y: p[1], SRID: toSRID}, nil
}

// Geometry reprojects every point of a geometry. The input geometry is not
// modified.
func (t *Transformer) Geometry(g orb.Geometry, fromSRID, toSRID int) (orb.Geometry, error) {
	proj, err := lookup(fromSRID, toSRID)
	if err != nil {
		return nil, err
	}
	if err := checkGeometryDomain(g, fromSRID, toSRID); err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), proj), nil
}

func checkGeometryDomain(g orb.Geometry, fromSRID, toSRID int) error {
	if !domain.IsGeographicSRID(fromSRID) {
		return nil
	}
	b := g.Bound()
	for _, p := range []orb.Point{b.Min, b.Max} {
		if err := checkDomain(p, fromSRID, toSRID); err != nil {
			return err
		}
	}
	return nil
}
