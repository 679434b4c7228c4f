package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/tiles/regions/14/14552/6451", "/api/v1/tiles/{layer}/{zoom}/{x}/{y}"},
		{"/api/v1/layers/facilities", "/api/v1/layers/{layer}"},
		{"/health", "/health"},
		{"/api/v1/spool/scan", "/api/v1/spool/scan"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
		{42, "unknown"},
	}

	for _, tt := range tests {
		if got := statusToString(tt.code); got != tt.want {
			t.Errorf("statusToString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if statusLabel(true) != "success" || statusLabel(false) != "error" {
		t.Error("statusLabel should map true/false to success/error")
	}
}
