// Package commands is the host-facing boundary: it names the retrieval
// operations, runs them, and collapses their errors into a single message.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"odptbus/pkg/metrics"
	"odptbus/pkg/odpt"
	"odptbus/pkg/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Command names as exposed to hosts.
const (
	GetBusStops      = "get_bus_stops"
	GetBusRoutes     = "get_bus_routes"
	GetBusTimetables = "get_bus_timetables"
	GetBusRealtime   = "get_bus_realtime"
)

var aliases = map[string]string{
	"stops":      GetBusStops,
	"routes":     GetBusRoutes,
	"timetables": GetBusTimetables,
	"realtime":   GetBusRealtime,
}

// Retriever is the set of retrieval operations a Registry dispatches to.
// *odpt.Client satisfies it.
type Retriever interface {
	GetBusStops(ctx context.Context) ([]types.BusStop, error)
	GetBusRoutes(ctx context.Context) ([]types.RoutePattern, error)
	GetBusTimetables(ctx context.Context) ([]types.StopTimetable, error)
	GetBusRealtime(ctx context.Context) ([]types.VehiclePosition, error)
}

// Result is what a host receives for one command. Exactly one of Data and
// Error is meaningful.
type Result struct {
	Command string `json:"command"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the command failed.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Records returns the result's records as a flat slice, or nil when the
// command failed.
func (r Result) Records() []any {
	switch data := r.Data.(type) {
	case []types.BusStop:
		return toAny(data)
	case []types.RoutePattern:
		return toAny(data)
	case []types.StopTimetable:
		return toAny(data)
	case []types.VehiclePosition:
		return toAny(data)
	default:
		return nil
	}
}

func toAny[T any](records []T) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

type handler func(ctx context.Context) (any, error)

// Registry maps command names to retrieval operations.
type Registry struct {
	handlers map[string]handler
}

// NewRegistry registers the four retrieval commands backed by r.
func NewRegistry(r Retriever) *Registry {
	return &Registry{
		handlers: map[string]handler{
			GetBusStops:      wrap(r.GetBusStops),
			GetBusRoutes:     wrap(r.GetBusRoutes),
			GetBusTimetables: wrap(r.GetBusTimetables),
			GetBusRealtime:   wrap(r.GetBusRealtime),
		},
	}
}

func wrap[T any](fn func(context.Context) ([]T, error)) handler {
	return func(ctx context.Context) (any, error) {
		records, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return records, nil
	}
}

// Resolve returns the canonical command name for name, accepting the short
// aliases ("stops", "routes", "timetables", "realtime").
func (r *Registry) Resolve(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	_, ok := r.handlers[name]
	return name, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named command. It never returns an error: failures,
// including unknown names, are reported in Result.Error.
func (r *Registry) Invoke(ctx context.Context, name string) Result {
	canonical, ok := r.Resolve(name)
	if !ok {
		return Result{Command: name, Error: fmt.Sprintf("unknown command: %s", name)}
	}

	ctx, span := otel.Tracer("commands").Start(ctx, "command."+canonical)
	defer span.End()

	done := metrics.CommandStarted(ctx, canonical)
	data, err := r.handlers[canonical](ctx)
	done(err != nil)

	if err != nil {
		msg := Collapse(err)
		span.SetStatus(codes.Error, msg)
		slog.Warn("Command failed", "command", canonical, "error", msg)
		return Result{Command: canonical, Error: msg}
	}

	res := Result{Command: canonical, Data: data}
	span.SetAttributes(attribute.Int("records_count", len(res.Records())))
	return res
}

// Collapse turns a retrieval error into the single message shown to hosts.
func Collapse(err error) string {
	if err == nil {
		return ""
	}

	var fetchErr *odpt.FetchError
	if !errors.As(err, &fetchErr) {
		return err.Error()
	}

	switch fetchErr.Kind {
	case odpt.KindNetwork:
		return fmt.Sprintf("request error: %v", fetchErr.Err)
	case odpt.KindHTTP:
		return fmt.Sprintf("API error: %d %s", fetchErr.StatusCode, http.StatusText(fetchErr.StatusCode))
	case odpt.KindDecode:
		return fmt.Sprintf("JSON parse error: %v", fetchErr.Err)
	default:
		return fetchErr.Error()
	}
}
