package render

import (
	"encoding/base64"
	"strings"
	"testing"
)

func decodeMarker(t *testing.T, uri string) string {
	t.Helper()

	if !strings.HasPrefix(uri, markerPrefix) {
		t.Fatalf("marker should start with %s, got %q", markerPrefix, uri)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, markerPrefix))
	if err != nil {
		t.Fatalf("Failed to decode base64: %v", err)
	}
	return string(decoded)
}

func TestVehicleMarker(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		wantLabel string
	}{
		{name: "short id", label: "veh1", wantLabel: "veh1"},
		{name: "long id truncated", label: "odpt.Bus:Toei.12345678", wantLabel: "345678"},
		{name: "escaped", label: "<a&b>", wantLabel: "&lt;a&amp;b&gt;"},
		{name: "empty", label: "", wantLabel: "</text>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svg := decodeMarker(t, VehicleMarker(tt.label))

			if !strings.Contains(svg, "<svg") {
				t.Error("marker should contain SVG markup")
			}
			if !strings.Contains(svg, tt.wantLabel) {
				t.Errorf("marker should contain %q:\n%s", tt.wantLabel, svg)
			}
		})
	}
}

func TestVehicleMarker_Deterministic(t *testing.T) {
	first := VehicleMarker("veh1")
	for i := 0; i < 3; i++ {
		if got := VehicleMarker("veh1"); got != first {
			t.Fatal("marker generation should be deterministic")
		}
	}
}

func TestLabelColor(t *testing.T) {
	for _, label := range []string{"veh1", "veh2", "X1", "都01"} {
		t.Run(label, func(t *testing.T) {
			color := labelColor(label)
			if !strings.HasPrefix(color, "hsl(") {
				t.Errorf("labelColor(%q) = %q, expected HSL format", label, color)
			}
			if color != labelColor(label) {
				t.Errorf("labelColor(%q) should be deterministic", label)
			}
		})
	}
}
