package commands

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"odptbus/pkg/types"

	"github.com/patrickmn/go-cache"
)

// CachedRetriever keeps the static datasets (stops, routes, timetables) for a
// TTL so polling cycles do not re-download them. Realtime positions always
// go upstream. Failures are never cached.
type CachedRetriever struct {
	next  Retriever
	cache *cache.Cache
}

// NewCachedRetriever wraps next. A non-positive ttl returns next unchanged.
func NewCachedRetriever(next Retriever, ttl time.Duration) Retriever {
	if ttl <= 0 {
		return next
	}
	return &CachedRetriever{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedRetriever) GetBusStops(ctx context.Context) ([]types.BusStop, error) {
	return cached(ctx, c.cache, GetBusStops, c.next.GetBusStops, types.BusStop.Clone)
}

func (c *CachedRetriever) GetBusRoutes(ctx context.Context) ([]types.RoutePattern, error) {
	return cached(ctx, c.cache, GetBusRoutes, c.next.GetBusRoutes, nil)
}

func (c *CachedRetriever) GetBusTimetables(ctx context.Context) ([]types.StopTimetable, error) {
	return cached(ctx, c.cache, GetBusTimetables, c.next.GetBusTimetables, types.StopTimetable.Clone)
}

func (c *CachedRetriever) GetBusRealtime(ctx context.Context) ([]types.VehiclePosition, error) {
	return c.next.GetBusRealtime(ctx)
}

// Flush drops every cached dataset.
func (c *CachedRetriever) Flush() {
	c.cache.Flush()
}

// cached serves key from c, fetching on a miss. Records are copied on the way
// in and on the way out with clone; a nil clone copies by value.
func cached[T any](ctx context.Context, c *cache.Cache, key string, fetch func(context.Context) ([]T, error), clone func(T) T) ([]T, error) {
	if v, ok := c.Get(key); ok {
		slog.Debug("Serving cached dataset", "command", key)
		return cloneAll(v.([]T), clone), nil
	}

	records, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.SetDefault(key, cloneAll(records, clone))
	return records, nil
}

func cloneAll[T any](records []T, clone func(T) T) []T {
	out := slices.Clone(records)
	if clone != nil {
		for i := range out {
			out[i] = clone(out[i])
		}
	}
	return out
}
