package types

import (
	"encoding/json"
	"slices"
)

// BusStop is a single bus stop pole (odpt:BusstopPole).
type BusStop struct {
	Title            *Title   `json:"title"`
	ExternalID       string   `json:"external_id" validate:"required"`
	ShortID          string   `json:"short_id"` // derived from ExternalID, never sent upstream
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	RoutePatternRefs []string `json:"route_pattern_refs"`
	TimetableRefs    []string `json:"timetable_refs"`
}

// UnmarshalJSON reads the upstream odpt:BusstopPole shape.
func (s *BusStop) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title         *Title   `json:"title"`
		SameAs        string   `json:"owl:sameAs"`
		Latitude      float64  `json:"geo:lat"`
		Longitude     float64  `json:"geo:long"`
		RoutePatterns []string `json:"odpt:busroutePattern"`
		Timetables    []string `json:"odpt:busstopPoleTimetable"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = BusStop{
		Title:            raw.Title,
		ExternalID:       raw.SameAs,
		Latitude:         raw.Latitude,
		Longitude:        raw.Longitude,
		RoutePatternRefs: raw.RoutePatterns,
		TimetableRefs:    raw.Timetables,
	}
	return nil
}

// Clone returns a copy of s that shares no title or slices with it.
func (s BusStop) Clone() BusStop {
	s.Title = s.Title.Clone()
	s.RoutePatternRefs = slices.Clone(s.RoutePatternRefs)
	s.TimetableRefs = slices.Clone(s.TimetableRefs)
	return s
}

// RoutePattern is a bus route pattern (odpt:BusroutePattern).
type RoutePattern struct {
	// PatternID is reserved and is not populated from upstream data.
	PatternID   string `json:"pattern_id"`
	RouteName   string `json:"route_name"`
	FromStopRef string `json:"from_stop_ref"`
	ToStopRef   string `json:"to_stop_ref"`
}

// UnmarshalJSON reads the upstream odpt:BusroutePattern shape.
func (r *RoutePattern) UnmarshalJSON(data []byte) error {
	var raw struct {
		RouteName string `json:"odpt:routeName"`
		From      string `json:"odpt:fromBusstopPole"`
		To        string `json:"odpt:toBusstopPole"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RoutePattern{
		RouteName:   raw.RouteName,
		FromStopRef: raw.From,
		ToStopRef:   raw.To,
	}
	return nil
}

// StopTimetable lists the departures from one stop pole (odpt:BusstopPoleTimetable).
type StopTimetable struct {
	StopRef    string           `json:"stop_ref" validate:"required"`
	Departures []TimetableEntry `json:"departures"`
}

// UnmarshalJSON reads the upstream odpt:BusstopPoleTimetable shape.
func (t *StopTimetable) UnmarshalJSON(data []byte) error {
	var raw struct {
		StopPole  string           `json:"odpt:busstopPole"`
		TimeTable []TimetableEntry `json:"odpt:timeTable"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = StopTimetable{
		StopRef:    raw.StopPole,
		Departures: raw.TimeTable,
	}
	return nil
}

// Clone returns a copy of t with its own Departures.
func (t StopTimetable) Clone() StopTimetable {
	t.Departures = slices.Clone(t.Departures)
	return t
}

// TimetableEntry is one departure. The time is kept in the upstream "HH:MM" form.
type TimetableEntry struct {
	DepartureTime string `json:"departure_time"`
}

// UnmarshalJSON reads the upstream odpt:BusstopPoleTimetableObject shape.
func (e *TimetableEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		DepartureTime string `json:"odpt:departureTime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.DepartureTime = raw.DepartureTime
	return nil
}

// Position is a WGS84 coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehiclePosition is one entity of the realtime vehicle position feed.
type VehiclePosition struct {
	ID        string   `json:"id" validate:"required"`
	TripID    string   `json:"trip_id"`
	VehicleID string   `json:"vehicle_id"`
	Position  Position `json:"position"`
}

// UnmarshalJSON reads the upstream feed entity, flattening the nested trip
// and vehicle descriptors.
func (v *VehiclePosition) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string `json:"id"`
		Trip struct {
			TripID string `json:"gtfs:tripId"`
		} `json:"gtfs:trip"`
		Vehicle struct {
			ID string `json:"gtfs:id"`
		} `json:"gtfs:vehicle"`
		Position Position `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = VehiclePosition{
		ID:        raw.ID,
		TripID:    raw.Trip.TripID,
		VehicleID: raw.Vehicle.ID,
		Position:  raw.Position,
	}
	return nil
}

// VehiclePositionFeed is the realtime envelope. Callers only ever see Entity.
type VehiclePositionFeed struct {
	Entity []VehiclePosition `json:"entity" validate:"dive"`
}
