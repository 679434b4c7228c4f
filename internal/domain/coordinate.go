// Package domain contains the core business entities and value objects.
package domain

import (
	"fmt"
	"math"
)

// Coordinate represents a point in a known coordinate reference system.
type Coordinate struct {
	X    float64 // Longitude or Easting
	Y    float64 // Latitude or Northing
	SRID int     // Spatial Reference ID
}

// NewWGS84Coordinate creates a WGS84 (EPSG:4326) coordinate.
func NewWGS84Coordinate(lon, lat float64) Coordinate {
	return Coordinate{X: lon, Y: lat, SRID: SRIDWGS84}
}

// NewCoordinate creates a coordinate with the specified SRID.
func NewCoordinate(x, y float64, srid int) Coordinate {
	return Coordinate{X: x, Y: y, SRID: srid}
}

// Validate checks if the coordinate is valid for its SRID.
func (c Coordinate) Validate() error {
	if IsGeographicSRID(c.SRID) {
		if c.X < -180 || c.X > 180 {
			return &ValidationError{
				Field:      "longitude",
				Value:      c.X,
				Constraint: "[-180, 180]",
				Message:    "longitude must be between -180 and 180",
				Err:        ErrInvalidCoordinate,
			}
		}
		if c.Y < -90 || c.Y > 90 {
			return &ValidationError{
				Field:      "latitude",
				Value:      c.Y,
				Constraint: "[-90, 90]",
				Message:    "latitude must be between -90 and 90",
				Err:        ErrInvalidCoordinate,
			}
		}
	}
	return nil
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("POINT(%f %f) SRID=%d", c.X, c.Y, c.SRID)
}

// Projection represents a coordinate reference system.
type Projection struct {
	SRID       int    // EPSG code
	Name       string // Human-readable name
	Geographic bool   // Degrees rather than projected units
}

// Common SRID constants.
const (
	SRIDWGS84       = 4326 // WGS 84 geographic
	SRIDWebMercator = 3857 // Web Mercator
	SRIDJGD2000     = 4612 // JGD2000 geographic (older MLIT datasets)
	SRIDJGD2011     = 6668 // JGD2011 geographic (current MLIT datasets)
)

// SRIDStore is the single projected CRS in which all geometries are persisted.
const SRIDStore = SRIDWebMercator

// CommonProjections contains the coordinate systems this service understands.
var CommonProjections = map[int]Projection{
	SRIDWGS84:       {SRID: SRIDWGS84, Name: "WGS 84", Geographic: true},
	SRIDWebMercator: {SRID: SRIDWebMercator, Name: "Web Mercator", Geographic: false},
	SRIDJGD2000:     {SRID: SRIDJGD2000, Name: "JGD2000", Geographic: true},
	SRIDJGD2011:     {SRID: SRIDJGD2011, Name: "JGD2011", Geographic: true},
}

// IsKnownSRID returns true if the SRID is in the common projections list.
func IsKnownSRID(srid int) bool {
	_, ok := CommonProjections[srid]
	return ok
}

// IsGeographicSRID returns true if the SRID identifies a geographic
// (degree-based) coordinate system.
func IsGeographicSRID(srid int) bool {
	p, ok := CommonProjections[srid]
	return ok && p.Geographic
}

// Extent represents a spatial bounding box.
type Extent struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
	SRID int
}

// Contains checks if a coordinate is within the extent.
func (e Extent) Contains(c Coordinate) bool {
	return c.X >= e.MinX && c.X <= e.MaxX && c.Y >= e.MinY && c.Y <= e.MaxY
}

// IsValid checks if the extent has valid dimensions.
func (e Extent) IsValid() bool {
	return e.MinX < e.MaxX && e.MinY < e.MaxY
}

// Width returns the width of the extent.
func (e Extent) Width() float64 {
	return math.Abs(e.MaxX - e.MinX)
}

// Height returns the height of the extent.
func (e Extent) Height() float64 {
	return math.Abs(e.MaxY - e.MinY)
}

// Center returns the center coordinate of the extent.
func (e Extent) Center() Coordinate {
	return Coordinate{
		X:    (e.MinX + e.MaxX) / 2,
		Y:    (e.MinY + e.MaxY) / 2,
		SRID: e.SRID,
	}
}

// Buffered returns the extent expanded outward on both axes. The expansion
// is span*fraction per axis, so it is independent of the units the extent
// is expressed in.
func (e Extent) Buffered(fraction float64) Extent {
	dx := e.Width() * fraction
	dy := e.Height() * fraction
	return Extent{
		MinX: e.MinX - dx,
		MinY: e.MinY - dy,
		MaxX: e.MaxX + dx,
		MaxY: e.MaxY + dy,
		SRID: e.SRID,
	}
}
