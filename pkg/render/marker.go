package render

import (
	"encoding/base64"
	"fmt"
	"html"
)

const markerPrefix = "data:image/svg+xml;base64,"

// VehicleMarker returns a base64 data-URI SVG used as the map marker for a
// vehicle in Grafana geomap panels. The colour is derived from label, so the
// same vehicle always gets the same marker.
func VehicleMarker(label string) string {
	color := labelColor(label)

	svg := fmt.Sprintf(`<svg width="90" height="45" xmlns="http://www.w3.org/2000/svg">
  <rect width="90" height="45" fill="white" stroke="#dee2e6" stroke-width="1" rx="6"/>
  <rect x="8" y="15" width="32" height="18" fill="%s" rx="3"/>
  <rect x="10" y="17" width="5" height="4" fill="#87CEEB" rx="1"/>
  <rect x="16" y="17" width="5" height="4" fill="#87CEEB" rx="1"/>
  <rect x="22" y="17" width="5" height="4" fill="#87CEEB" rx="1"/>
  <rect x="28" y="17" width="5" height="4" fill="#87CEEB" rx="1"/>
  <circle cx="15" cy="35" r="3" fill="#2C3E50"/>
  <circle cx="31" cy="35" r="3" fill="#2C3E50"/>
  <rect x="45" y="12" width="40" height="14" fill="%s" rx="2"/>
  <text x="65" y="22" font-family="sans-serif" font-size="9" font-weight="bold" fill="white" text-anchor="middle">%s</text>
</svg>`, color, color, html.EscapeString(shortLabel(label)))

	return markerPrefix + base64.StdEncoding.EncodeToString([]byte(svg))
}

// shortLabel keeps the last six runes so long vehicle ids fit the badge.
func shortLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= 6 {
		return label
	}
	return string(runes[len(runes)-6:])
}

// labelColor hashes label onto a hue.
func labelColor(label string) string {
	hash := 0
	for _, char := range label {
		hash = int(char) + ((hash << 5) - hash)
	}

	hue := (hash%360 + 360) % 360
	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", hue)
}
