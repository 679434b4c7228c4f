package domain

import (
	"errors"
	"testing"
)

func TestNewTile(t *testing.T) {
	tests := []struct {
		name    string
		zoom    int
		x       int
		y       int
		wantErr bool
	}{
		{"world tile", 0, 0, 0, false},
		{"tokyo at zoom 14", 14, 14552, 6451, false},
		{"max index at zoom", 3, 7, 7, false},
		{"max zoom", 30, 0, 0, false},
		{"zoom too high", 31, 0, 0, true},
		{"negative zoom", -1, 0, 0, true},
		{"x at grid edge", 3, 8, 0, true},
		{"y at grid edge", 3, 0, 8, true},
		{"negative x", 5, -1, 0, true},
		{"negative y", 5, 0, -1, true},
		{"x valid only at deeper zoom", 2, 5, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile, err := NewTile(tt.zoom, tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTile(%d, %d, %d) error = %v, wantErr %v",
					tt.zoom, tt.x, tt.y, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidTile) {
					t.Errorf("tile error should unwrap to ErrInvalidTile, got %v", err)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("tile error should unwrap to ErrInvalidInput, got %v", err)
				}
				return
			}
			if tile.Zoom != tt.zoom || tile.X != tt.x || tile.Y != tt.y {
				t.Errorf("NewTile() = %+v, want {%d %d %d}", tile, tt.zoom, tt.x, tt.y)
			}
		})
	}
}

func TestTileString(t *testing.T) {
	tile := Tile{Zoom: 14, X: 14552, Y: 6451}
	if got := tile.String(); got != "14/14552/6451" {
		t.Errorf("String() = %q, want %q", got, "14/14552/6451")
	}
}
