package odpt

import (
	"context"
	"fmt"
	"log/slog"

	"odptbus/pkg/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Endpoint paths relative to the API base URL.
const (
	StopsPath            = "odpt:BusstopPole.json"
	RoutesPath           = "odpt:BusroutePattern.json"
	TimetablesPath       = "odpt:BusstopPoleTimetable.json"
	RealtimePathTemplate = "gtfs/realtime/%s"
)

// GetBusStops fetches every bus stop pole and fills in ShortID.
func (c *Client) GetBusStops(ctx context.Context) ([]types.BusStop, error) {
	ctx, span := c.tracer.Start(ctx, "odpt.get_bus_stops")
	defer span.End()

	stops, err := Fetch[[]types.BusStop](ctx, c, c.endpointURL(StopsPath))
	if err != nil {
		return nil, err
	}

	normalized := NormalizeStopIDs(stops)
	span.SetAttributes(attribute.Int("records_count", len(normalized)))
	slog.Debug("Fetched bus stops", "count", len(normalized))
	return normalized, nil
}

// GetBusRoutes fetches every bus route pattern.
func (c *Client) GetBusRoutes(ctx context.Context) ([]types.RoutePattern, error) {
	ctx, span := c.tracer.Start(ctx, "odpt.get_bus_routes")
	defer span.End()

	routes, err := Fetch[[]types.RoutePattern](ctx, c, c.endpointURL(RoutesPath))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records_count", len(routes)))
	slog.Debug("Fetched bus routes", "count", len(routes))
	return routes, nil
}

// GetBusTimetables fetches every stop pole timetable.
func (c *Client) GetBusTimetables(ctx context.Context) ([]types.StopTimetable, error) {
	ctx, span := c.tracer.Start(ctx, "odpt.get_bus_timetables")
	defer span.End()

	timetables, err := Fetch[[]types.StopTimetable](ctx, c, c.endpointURL(TimetablesPath))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records_count", len(timetables)))
	slog.Debug("Fetched bus timetables", "count", len(timetables))
	return timetables, nil
}

// GetBusRealtime fetches the realtime feed and returns its vehicle positions
// without the feed envelope.
func (c *Client) GetBusRealtime(ctx context.Context) ([]types.VehiclePosition, error) {
	ctx, span := c.tracer.Start(ctx, "odpt.get_bus_realtime",
		trace.WithAttributes(attribute.String("realtime.feed", c.realtimeFeed)),
	)
	defer span.End()

	url := c.endpointURL(fmt.Sprintf(RealtimePathTemplate, c.realtimeFeed))
	feed, err := Fetch[types.VehiclePositionFeed](ctx, c, url)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records_count", len(feed.Entity)))
	slog.Debug("Fetched realtime vehicle positions", "feed", c.realtimeFeed, "count", len(feed.Entity))
	return feed.Entity, nil
}
