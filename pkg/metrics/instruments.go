package metrics

import (
	"go.opentelemetry.io/otel/metric"
)

// HTTP Client Metrics (OTEL Semantic Conventions)
var (
	// HTTPClientRequestDuration measures the duration of upstream HTTP requests
	HTTPClientRequestDuration metric.Float64Histogram

	// HTTPClientResponseBodySize measures the size of upstream response bodies
	HTTPClientResponseBodySize metric.Int64Histogram
)

// ODPT API Metrics
var (
	// APIRequestsTotal counts upstream requests by endpoint and status code
	APIRequestsTotal metric.Int64Counter

	// APIErrorsTotal counts failed fetches by endpoint and error type
	APIErrorsTotal metric.Int64Counter
)

// Decoder Metrics
var (
	// DecodeDuration measures JSON decode and validation duration
	DecodeDuration metric.Float64Histogram

	// DecodePayloadSize measures the size of JSON payloads being decoded
	DecodePayloadSize metric.Int64Histogram

	// RecordsDecoded counts records produced by successful decodes
	RecordsDecoded metric.Int64Counter

	// DecodeFailures counts payloads rejected by the decoder
	DecodeFailures metric.Int64Counter
)

// Command Metrics
var (
	// CommandsTotal counts command invocations by name and status
	CommandsTotal metric.Int64Counter

	// CommandDuration measures end-to-end command duration
	CommandDuration metric.Float64Histogram

	// CommandsInFlight tracks concurrently running commands
	CommandsInFlight metric.Int64UpDownCounter
)

// Pipeline Metrics
var (
	// PipelineCyclesTotal counts pipeline cycles
	PipelineCyclesTotal metric.Int64Counter

	// PipelineCycleDuration measures the duration of pipeline cycles
	PipelineCycleDuration metric.Float64Histogram
)

// Loki Metrics
var (
	// LokiBatchSize measures the number of records per push
	LokiBatchSize metric.Int64Histogram

	// LokiSendDuration measures the duration of Loki push operations
	LokiSendDuration metric.Float64Histogram

	// LokiSendTotal counts Loki pushes by status
	LokiSendTotal metric.Int64Counter
)

var sizeBuckets = []float64{1024, 10240, 102400, 1048576, 10485760, 104857600} // 1KB to 100MB

// initializeInstruments creates all metric instruments
func initializeInstruments() error {
	var err error

	HTTPClientRequestDuration, err = Meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return err
	}

	HTTPClientResponseBodySize, err = Meter.Int64Histogram(
		"http.client.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	)
	if err != nil {
		return err
	}

	APIRequestsTotal, err = Meter.Int64Counter(
		"odpt.api.requests.total",
		metric.WithDescription("Total ODPT API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	APIErrorsTotal, err = Meter.Int64Counter(
		"odpt.api.errors.total",
		metric.WithDescription("Failed ODPT fetches by error type"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	DecodeDuration, err = Meter.Float64Histogram(
		"decoder.duration",
		metric.WithDescription("Duration of JSON decode and validation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	DecodePayloadSize, err = Meter.Int64Histogram(
		"decoder.payload.size",
		metric.WithDescription("Size of JSON payloads being decoded"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	)
	if err != nil {
		return err
	}

	RecordsDecoded, err = Meter.Int64Counter(
		"decoder.records.decoded",
		metric.WithDescription("Records produced by successful decodes"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	DecodeFailures, err = Meter.Int64Counter(
		"decoder.failures",
		metric.WithDescription("Payloads rejected by the decoder"),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return err
	}

	CommandsTotal, err = Meter.Int64Counter(
		"commands.total",
		metric.WithDescription("Command invocations by name and status"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	CommandDuration, err = Meter.Float64Histogram(
		"commands.duration",
		metric.WithDescription("End-to-end command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return err
	}

	CommandsInFlight, err = Meter.Int64UpDownCounter(
		"commands.in_flight",
		metric.WithDescription("Commands currently running"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	PipelineCyclesTotal, err = Meter.Int64Counter(
		"pipeline.cycles.total",
		metric.WithDescription("Total number of pipeline cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	PipelineCycleDuration, err = Meter.Float64Histogram(
		"pipeline.cycle.duration",
		metric.WithDescription("Duration of pipeline cycles"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return err
	}

	LokiBatchSize, err = Meter.Int64Histogram(
		"loki.batch.size",
		metric.WithDescription("Number of records per push"),
		metric.WithUnit("{record}"),
		metric.WithExplicitBucketBoundaries(1, 10, 100, 1000, 10000, 100000),
	)
	if err != nil {
		return err
	}

	LokiSendDuration, err = Meter.Float64Histogram(
		"loki.send.duration",
		metric.WithDescription("Duration of Loki push operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	LokiSendTotal, err = Meter.Int64Counter(
		"loki.send.total",
		metric.WithDescription("Total Loki pushes by status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	return nil
}
