package odpt

import (
	"strings"

	"odptbus/pkg/types"
)

// ShortIDFromExternalID returns the part of an ODPT identifier after its last
// '.', e.g. "123" for "odpt.BusstopPole:Toei.Something.123". Identifiers
// without a '.' yield "".
func ShortIDFromExternalID(externalID string) string {
	idx := strings.LastIndex(externalID, ".")
	if idx < 0 {
		return ""
	}
	return externalID[idx+1:]
}

// NormalizeStopIDs returns a copy of stops with ShortID derived from
// ExternalID. The result shares no slices or titles with the input.
func NormalizeStopIDs(stops []types.BusStop) []types.BusStop {
	if stops == nil {
		return nil
	}

	out := make([]types.BusStop, len(stops))
	for i, s := range stops {
		s = s.Clone()
		s.ShortID = ShortIDFromExternalID(s.ExternalID)
		out[i] = s
	}
	return out
}
