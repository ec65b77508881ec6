package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"odptbus/pkg/commands"
	"odptbus/pkg/metrics"
	"odptbus/pkg/odpt"
	"odptbus/pkg/otel"
	"odptbus/pkg/render"
	"odptbus/pkg/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	pushPath = "/loki/api/v1/push"

	JobLabel     = "odptbus"
	ServiceLabel = "transit-open-data"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	tracer     trace.Tracer
	now        func() time.Time
}

type PushRequest struct {
	Streams []Stream `json:"streams"`
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// vehicleLine is the log line for a realtime vehicle; the marker lets
// Grafana geomap panels draw it directly.
type vehicleLine struct {
	types.VehiclePosition
	Marker string `json:"bus_image"`
}

// stopLine is the log line for a stop pole, with the name a dashboard shows.
type stopLine struct {
	types.BusStop
	Name string `json:"name"`
}

func NewClient(baseURL, username, password string) *Client {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	return &Client{
		httpClient: client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		tracer:     otelapi.Tracer("loki-client"),
		now:        time.Now,
	}
}

// SendRecords pushes one log line per record to a single stream labelled with
// the command name. All lines of a batch share one timestamp, offset by their
// index so Loki keeps their order.
func (c *Client) SendRecords(ctx context.Context, command string, records []any) (err error) {
	ctx, span := c.tracer.Start(ctx, "loki.send_records",
		trace.WithAttributes(
			attribute.String("command", command),
			attribute.Int("records_count", len(records)),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecordLokiSend(ctx, command, len(records), time.Since(start), err)
		otel.FinishSpan(span, err, otel.ErrorTypeHTTP)
	}()

	base := c.now().UnixNano()
	logValues := make([][]string, 0, len(records))
	for i, record := range records {
		line, err := logLine(record)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record %d: %w", command, i, err)
		}
		logValues = append(logValues, []string{
			strconv.FormatInt(base+int64(i), 10),
			string(line),
		})
	}

	lokiReq := PushRequest{
		Streams: []Stream{
			{
				Stream: map[string]string{
					"job":     JobLabel,
					"service": ServiceLabel,
					"command": command,
				},
				Values: logValues,
			},
		},
	}

	reqBody, err := json.Marshal(lokiReq)
	if err != nil {
		return fmt.Errorf("failed to marshal Loki request: %w", err)
	}

	url := c.baseURL + pushPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", odpt.UserAgent)

	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
		span.SetAttributes(
			attribute.Bool("auth.enabled", true),
			attribute.String("auth.username", c.username),
		)
	} else {
		span.SetAttributes(attribute.Bool("auth.enabled", false))
	}

	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", http.MethodPost),
		attribute.Int("request.size_bytes", len(reqBody)),
		attribute.Int("log_lines_count", len(logValues)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Loki returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}

func logLine(record any) ([]byte, error) {
	switch r := record.(type) {
	case types.VehiclePosition:
		label := r.VehicleID
		if label == "" {
			label = r.ID
		}
		return json.Marshal(vehicleLine{VehiclePosition: r, Marker: render.VehicleMarker(label)})
	case types.BusStop:
		return json.Marshal(stopLine{BusStop: r, Name: commands.DisplayName(r)})
	default:
		return json.Marshal(record)
	}
}
