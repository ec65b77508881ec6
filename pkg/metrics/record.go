package metrics

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// The helpers below are no-ops while metrics are disabled, so callers never
// need to check IsEnabled themselves.

// RecordAPIRequest records one upstream request and its outcome.
func RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration, bodySize int) {
	if !IsEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("http.status_code", strconv.Itoa(statusCode)),
	)
	APIRequestsTotal.Add(ctx, 1, attrs)
	HTTPClientRequestDuration.Record(ctx, duration.Seconds(), attrs)
	if bodySize >= 0 {
		HTTPClientResponseBodySize.Record(ctx, int64(bodySize), attrs)
	}
}

// RecordAPIError counts a failed fetch.
func RecordAPIError(ctx context.Context, endpoint, errorType string) {
	if !IsEnabled() {
		return
	}
	APIErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("error.type", errorType),
	))
}

// RecordDecode records a decode attempt. records is ignored on failure.
func RecordDecode(ctx context.Context, target string, payloadSize int, records int, duration time.Duration, err error) {
	if !IsEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("target", target))
	DecodeDuration.Record(ctx, duration.Seconds(), attrs)
	DecodePayloadSize.Record(ctx, int64(payloadSize), attrs)
	if err != nil {
		DecodeFailures.Add(ctx, 1, attrs)
		return
	}
	RecordsDecoded.Add(ctx, int64(records), attrs)
}

// CommandStarted marks a command as in flight and returns a function that
// records its completion.
func CommandStarted(ctx context.Context, command string) func(failed bool) {
	if !IsEnabled() {
		return func(bool) {}
	}
	start := time.Now()
	nameAttr := attribute.String("command", command)
	CommandsInFlight.Add(ctx, 1, metric.WithAttributes(nameAttr))

	return func(failed bool) {
		status := "success"
		if failed {
			status = "error"
		}
		CommandsInFlight.Add(ctx, -1, metric.WithAttributes(nameAttr))
		CommandsTotal.Add(ctx, 1, metric.WithAttributes(nameAttr, attribute.String("status", status)))
		CommandDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(nameAttr))
	}
}

// RecordCycle records one pipeline cycle.
func RecordCycle(ctx context.Context, duration time.Duration, failedCommands, totalCommands int) {
	if failedCommands < totalCommands {
		RecordLastSuccessTimestamp()
	}
	if !IsEnabled() {
		return
	}
	status := "success"
	switch {
	case failedCommands == totalCommands:
		status = "error"
	case failedCommands > 0:
		status = "partial"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	PipelineCyclesTotal.Add(ctx, 1, attrs)
	PipelineCycleDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLokiSend records one Loki push.
func RecordLokiSend(ctx context.Context, command string, records int, duration time.Duration, err error) {
	if !IsEnabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	cmdAttr := attribute.String("command", command)
	LokiSendTotal.Add(ctx, 1, metric.WithAttributes(cmdAttr, attribute.String("status", status)))
	LokiSendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(cmdAttr))
	LokiBatchSize.Record(ctx, int64(records), metric.WithAttributes(cmdAttr))
}
