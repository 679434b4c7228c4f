package domain

import "fmt"

// MaxTileZoom is the largest zoom level the tile math accepts. Beyond this
// the per-tile spans degenerate below float64 resolution.
const MaxTileZoom = 30

// Tile addresses a slippy-map tile by zoom level and grid position.
type Tile struct {
	Zoom int
	X    int
	Y    int
}

// NewTile validates the address and returns the tile. X and Y must lie in
// [0, 2^zoom) and zoom in [0, MaxTileZoom].
func NewTile(zoom, x, y int) (Tile, error) {
	if zoom < 0 || zoom > MaxTileZoom {
		return Tile{}, &ValidationError{
			Field:      "zoom",
			Value:      zoom,
			Constraint: fmt.Sprintf("[0, %d]", MaxTileZoom),
			Message:    "zoom level out of range",
			Err:        ErrInvalidTile,
		}
	}
	max := 1 << uint(zoom)
	if x < 0 || x >= max {
		return Tile{}, &ValidationError{
			Field:      "x",
			Value:      x,
			Constraint: fmt.Sprintf("[0, %d)", max),
			Message:    "tile column out of range for zoom level",
			Err:        ErrInvalidTile,
		}
	}
	if y < 0 || y >= max {
		return Tile{}, &ValidationError{
			Field:      "y",
			Value:      y,
			Constraint: fmt.Sprintf("[0, %d)", max),
			Message:    "tile row out of range for zoom level",
			Err:        ErrInvalidTile,
		}
	}
	return Tile{Zoom: zoom, X: x, Y: y}, nil
}

// String returns the tile address in z/x/y form.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}
