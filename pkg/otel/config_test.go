package otel

import (
	"testing"
	"time"
)

func TestGetExporterConfig_Defaults(t *testing.T) {
	cfg := GetExporterConfig(SignalTraces)

	if cfg.Protocol != ProtocolHTTPProtobuf {
		t.Errorf("Protocol = %q, want %q", cfg.Protocol, ProtocolHTTPProtobuf)
	}
	if cfg.Endpoint != "http://localhost:4318/v1/traces" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "http://localhost:4318/v1/traces")
	}
	if !cfg.Insecure {
		t.Error("Insecure should be inferred from http:// endpoint")
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestGetExporterConfig_BaseEndpointAppendsSignal(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://otlp.example.com/otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Basic dXNlcjpwYXNz==")

	cfg := GetExporterConfig(SignalMetrics)

	if cfg.Endpoint != "https://otlp.example.com/otlp/v1/metrics" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "https://otlp.example.com/otlp/v1/metrics")
	}
	if cfg.Insecure {
		t.Error("Insecure should be false for https endpoint")
	}
	if got := cfg.Headers["Authorization"]; got != "Basic dXNlcjpwYXNz==" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestGetExporterConfig_SignalSpecificOverrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://base.example.com")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://tempo:4317/ignored/path")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "2500")

	cfg := GetExporterConfig(SignalTraces)

	if cfg.Protocol != ProtocolGRPC {
		t.Errorf("Protocol = %q, want grpc", cfg.Protocol)
	}
	if cfg.Endpoint != "tempo:4317" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "tempo:4317")
	}
	if cfg.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %v, want 2.5s", cfg.Timeout)
	}
}

func TestIsTrue(t *testing.T) {
	for _, s := range []string{"true", "TRUE", " 1 ", "yes", "on"} {
		if !isTrue(s) {
			t.Errorf("isTrue(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "false", "0", "off", "enabled"} {
		if isTrue(s) {
			t.Errorf("isTrue(%q) = true, want false", s)
		}
	}
}
