package odpt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"odptbus/pkg/metrics"
	"odptbus/pkg/otel"
	"odptbus/pkg/parser"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL      = "https://api-public.odpt.org/api/v4/"
	DefaultRealtimeFeed = "ToeiBus"

	UserAgent = "odptbus/1.0.0"
)

// Client talks to the ODPT public API. It holds only immutable settings and a
// goroutine-safe http.Client, so concurrent calls share no mutable state.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	realtimeFeed string
	tracer       trace.Tracer
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty) reading
// realtime positions from feed (DefaultRealtimeFeed when empty). A zero
// timeout leaves requests bounded only by the caller's context.
func NewClient(baseURL, feed string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if feed == "" {
		feed = DefaultRealtimeFeed
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		baseURL:      baseURL,
		realtimeFeed: feed,
		tracer:       otelapi.Tracer("odpt-client"),
	}
}

// endpointURL joins an endpoint path onto the base URL.
func (c *Client) endpointURL(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// Fetch issues a GET to url and decodes the body as T. No query parameters
// or credentials are added and nothing is retried; every failure is returned
// as a *FetchError and the zero T.
func Fetch[T any](ctx context.Context, c *Client, url string) (T, error) {
	var zero T

	endpoint := strings.TrimPrefix(url, c.baseURL)
	ctx, span := c.tracer.Start(ctx, "odpt.fetch",
		trace.WithAttributes(
			attribute.String("http.url", url),
			attribute.String("http.method", http.MethodGet),
			attribute.String("api.endpoint", endpoint),
		),
	)
	defer span.End()

	fail := func(fe *FetchError) (T, error) {
		metrics.RecordAPIError(ctx, endpoint, otel.FinishSpan(span, fe, otel.ErrorTypeNetwork))
		slog.Debug("ODPT fetch failed", "endpoint", endpoint, "kind", fe.Kind, "error", fe)
		return zero, fe
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(&FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(&FetchError{Kind: KindNetwork, URL: url, Err: err})
	}
	defer resp.Body.Close()

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.String("http.response.content_type", resp.Header.Get("Content-Type")),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body itself is discarded.
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.RecordAPIRequest(ctx, endpoint, resp.StatusCode, time.Since(start), -1)
		return fail(&FetchError{Kind: KindHTTP, URL: url, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPIRequest(ctx, endpoint, resp.StatusCode, time.Since(start), len(body))
	if err != nil {
		return fail(&FetchError{Kind: KindDecode, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)})
	}

	span.SetAttributes(attribute.Int("response.size_bytes", len(body)))

	result, err := parser.Decode[T](ctx, body)
	if err != nil {
		return fail(&FetchError{Kind: KindDecode, URL: url, Err: err})
	}

	otel.FinishSpan(span, nil, "")
	return result, nil
}
