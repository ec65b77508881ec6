// Package gtfsrt converts decoded vehicle positions back into a GTFS-Realtime
// FeedMessage for consumers that expect the protobuf format.
package gtfsrt

import (
	"fmt"
	"time"

	"odptbus/pkg/types"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// Version is the gtfs_realtime_version written into feed headers.
const Version = "2.0"

// FromVehiclePositions builds a full-dataset feed with one entity per
// position. Empty trip and vehicle ids are left unset.
func FromVehiclePositions(positions []types.VehiclePosition, ts time.Time) *gtfsrtpb.FeedMessage {
	feed := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(Version),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(ts.Unix())),
		},
		Entity: make([]*gtfsrtpb.FeedEntity, 0, len(positions)),
	}

	for _, vp := range positions {
		vehicle := &gtfsrtpb.VehiclePosition{
			Position: &gtfsrtpb.Position{
				Latitude:  proto.Float32(float32(vp.Position.Latitude)),
				Longitude: proto.Float32(float32(vp.Position.Longitude)),
			},
		}
		if vp.TripID != "" {
			vehicle.Trip = &gtfsrtpb.TripDescriptor{TripId: proto.String(vp.TripID)}
		}
		if vp.VehicleID != "" {
			vehicle.Vehicle = &gtfsrtpb.VehicleDescriptor{Id: proto.String(vp.VehicleID)}
		}

		feed.Entity = append(feed.Entity, &gtfsrtpb.FeedEntity{
			Id:      proto.String(vp.ID),
			Vehicle: vehicle,
		})
	}

	return feed
}

// MarshalText renders the feed in protobuf text format.
func MarshalText(feed *gtfsrtpb.FeedMessage) ([]byte, error) {
	out, err := prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed as text: %w", err)
	}
	return out, nil
}

// Marshal renders the feed in protobuf wire format.
func Marshal(feed *gtfsrtpb.FeedMessage) ([]byte, error) {
	out, err := proto.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return out, nil
}
