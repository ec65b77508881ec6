package commands

import (
	"strings"

	"odptbus/pkg/types"
)

// UnknownStopName is shown for stops without a title.
const UnknownStopName = "名称不明"

// DisplayName returns the stop's primary name, or UnknownStopName.
func DisplayName(stop types.BusStop) string {
	if stop.Title == nil || stop.Title.PrimaryName == "" {
		return UnknownStopName
	}
	return stop.Title.PrimaryName
}

// DedupeStopsByTitle keeps the first stop for each primary name. A stop
// usually has one pole per direction, all sharing a name. Untitled stops are
// always kept.
func DedupeStopsByTitle(stops []types.BusStop) []types.BusStop {
	seen := make(map[string]struct{}, len(stops))
	out := make([]types.BusStop, 0, len(stops))
	for _, s := range stops {
		if s.Title == nil {
			out = append(out, s)
			continue
		}
		if _, ok := seen[s.Title.PrimaryName]; ok {
			continue
		}
		seen[s.Title.PrimaryName] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FilterStopsByName returns the stops whose primary name contains query.
// An empty query matches everything. No match yields an empty, non-nil slice.
func FilterStopsByName(stops []types.BusStop, query string) []types.BusStop {
	query = strings.TrimSpace(query)
	if query == "" {
		return stops
	}

	out := []types.BusStop{}
	for _, s := range stops {
		if s.Title != nil && strings.Contains(s.Title.PrimaryName, query) {
			out = append(out, s)
		}
	}
	return out
}
