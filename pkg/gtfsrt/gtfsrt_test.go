package gtfsrt

import (
	"math"
	"strings"
	"testing"
	"time"

	"odptbus/pkg/types"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

var samplePositions = []types.VehiclePosition{
	{ID: "v1", TripID: "t1", VehicleID: "veh1", Position: types.Position{Latitude: 35.6, Longitude: 139.7}},
	{ID: "v2", Position: types.Position{Latitude: 35.65, Longitude: 139.75}},
}

func TestFromVehiclePositions(t *testing.T) {
	ts := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	feed := FromVehiclePositions(samplePositions, ts)

	header := feed.GetHeader()
	if header.GetGtfsRealtimeVersion() != Version {
		t.Errorf("version = %q, want %q", header.GetGtfsRealtimeVersion(), Version)
	}
	if header.GetIncrementality() != gtfsrtpb.FeedHeader_FULL_DATASET {
		t.Errorf("incrementality = %v, want FULL_DATASET", header.GetIncrementality())
	}
	if header.GetTimestamp() != uint64(ts.Unix()) {
		t.Errorf("timestamp = %d, want %d", header.GetTimestamp(), ts.Unix())
	}

	if len(feed.GetEntity()) != 2 {
		t.Fatalf("len(entity) = %d, want 2", len(feed.GetEntity()))
	}

	first := feed.GetEntity()[0]
	if first.GetId() != "v1" {
		t.Errorf("id = %q, want v1", first.GetId())
	}
	if first.GetVehicle().GetTrip().GetTripId() != "t1" {
		t.Errorf("trip_id = %q, want t1", first.GetVehicle().GetTrip().GetTripId())
	}
	if first.GetVehicle().GetVehicle().GetId() != "veh1" {
		t.Errorf("vehicle.id = %q, want veh1", first.GetVehicle().GetVehicle().GetId())
	}
	if lat := first.GetVehicle().GetPosition().GetLatitude(); math.Abs(float64(lat)-35.6) > 1e-4 {
		t.Errorf("latitude = %v, want 35.6", lat)
	}
	if lon := first.GetVehicle().GetPosition().GetLongitude(); math.Abs(float64(lon)-139.7) > 1e-4 {
		t.Errorf("longitude = %v, want 139.7", lon)
	}

	second := feed.GetEntity()[1]
	if second.GetVehicle().Trip != nil || second.GetVehicle().Vehicle != nil {
		t.Errorf("empty ids should leave descriptors unset, got %+v", second.GetVehicle())
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	feed := FromVehiclePositions(samplePositions, time.Unix(1700000000, 0))

	data, err := Marshal(feed)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !proto.Equal(feed, &decoded) {
		t.Error("decoded feed differs from original")
	}
}

func TestMarshalText(t *testing.T) {
	out, err := MarshalText(FromVehiclePositions(samplePositions[:1], time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	text := string(out)
	for _, want := range []string{`gtfs_realtime_version:`, `FULL_DATASET`, `"v1"`, `"t1"`, `"veh1"`} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q:\n%s", want, text)
		}
	}
}

func TestFromVehiclePositions_Empty(t *testing.T) {
	feed := FromVehiclePositions(nil, time.Now())
	if len(feed.GetEntity()) != 0 {
		t.Errorf("len(entity) = %d, want 0", len(feed.GetEntity()))
	}
	if _, err := Marshal(feed); err != nil {
		t.Errorf("Marshal of empty feed failed: %v", err)
	}
}
