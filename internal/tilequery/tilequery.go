// Package tilequery turns slippy-map tile addresses into the buffered
// Web Mercator query polygons the spatial store filters with.
package tilequery

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/maptile"

	"github.com/chizu-dev/chizu/internal/domain"
	"github.com/chizu-dev/chizu/internal/projection"
)

// BufferFraction is the per-side expansion applied to a tile's box so that
// features straddling the tile edge are included. Expressed as a fraction
// of the tile's projected span.
const BufferFraction = 0.2

// webMercatorLimit is the half-width of the Web Mercator world square.
const webMercatorLimit = 20037508.342789244

// Bounds returns the WGS84 bounding box of a tile.
func Bounds(t domain.Tile) domain.Extent {
	b := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Zoom)).Bound()
	return domain.Extent{
		MinX: b.Min[0],
		MinY: b.Min[1],
		MaxX: b.Max[0],
		MaxY: b.Max[1],
		SRID: domain.SRIDWGS84,
	}
}

// Builder constructs buffered query polygons for tiles.
type Builder struct {
	transformer *projection.Transformer
	fraction    float64
}

// NewBuilder returns a Builder using the default buffer fraction.
func NewBuilder(tr *projection.Transformer) *Builder {
	return &Builder{transformer: tr, fraction: BufferFraction}
}

// QueryExtent returns the buffered Web Mercator box of a tile. The box is
// clamped to the world extent so edge tiles never wrap.
func (b *Builder) QueryExtent(t domain.Tile) (domain.Extent, error) {
	bounds := Bounds(t)

	lb, err := b.transformer.Point(
		orb.Point{bounds.MinX, bounds.MinY}, domain.SRIDWGS84, domain.SRIDWebMercator)
	if err != nil {
		return domain.Extent{}, err
	}
	rt, err := b.transformer.Point(
		orb.Point{bounds.MaxX, bounds.MaxY}, domain.SRIDWGS84, domain.SRIDWebMercator)
	if err != nil {
		return domain.Extent{}, err
	}

	ext := domain.Extent{
		MinX: lb[0], MinY: lb[1],
		MaxX: rt[0], MaxY: rt[1],
		SRID: domain.SRIDWebMercator,
	}.Buffered(b.fraction)

	ext.MinX = clamp(ext.MinX)
	ext.MinY = clamp(ext.MinY)
	ext.MaxX = clamp(ext.MaxX)
	ext.MaxY = clamp(ext.MaxY)
	return ext, nil
}

// QueryPolygon renders the buffered tile box as a closed WKT polygon in
// EPSG:3857, counterclockwise from the lower-left corner.
func (b *Builder) QueryPolygon(t domain.Tile) (string, error) {
	ext, err := b.QueryExtent(t)
	if err != nil {
		return "", err
	}

	ring := orb.Ring{
		{ext.MinX, ext.MinY},
		{ext.MaxX, ext.MinY},
		{ext.MaxX, ext.MaxY},
		{ext.MinX, ext.MaxY},
		{ext.MinX, ext.MinY},
	}
	return wkt.MarshalString(orb.Polygon{ring}), nil
}

func clamp(v float64) float64 {
	if v < -webMercatorLimit {
		return -webMercatorLimit
	}
	if v > webMercatorLimit {
		return webMercatorLimit
	}
	return v
}
