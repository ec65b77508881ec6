package otel

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Protocol represents OTLP transport protocol
type Protocol string

const (
	ProtocolGRPC         Protocol = "grpc"
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
	ProtocolHTTPJSON     Protocol = "http/json"
)

// SignalType represents the OTEL signal type
type SignalType string

const (
	SignalTraces  SignalType = "traces"
	SignalMetrics SignalType = "metrics"
)

// ExporterConfig holds the resolved OTLP exporter settings for one signal
type ExporterConfig struct {
	Endpoint    string
	Protocol    Protocol
	Headers     map[string]string
	Timeout     time.Duration
	Insecure    bool
	Compression string
}

// IsTracingEnabled reports whether OTEL_TRACING_ENABLED is set to a true value
func IsTracingEnabled() bool {
	return isTrue(os.Getenv("OTEL_TRACING_ENABLED"))
}

// IsMetricsEnabled reports whether OTEL_METRICS_ENABLED is set to a true value
func IsMetricsEnabled() bool {
	return isTrue(os.Getenv("OTEL_METRICS_ENABLED"))
}

// signalEnv looks up OTEL_EXPORTER_OTLP_<SIGNAL>_<suffix>, then
// OTEL_EXPORTER_OTLP_<suffix>, then returns def.
type signalEnv struct {
	signal SignalType
}

func (e signalEnv) specific(suffix string) string {
	return "OTEL_EXPORTER_OTLP_" + strings.ToUpper(string(e.signal)) + "_" + suffix
}

func (e signalEnv) get(suffix, def string) string {
	if v := os.Getenv(e.specific(suffix)); v != "" {
		return v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_" + suffix); v != "" {
		return v
	}
	return def
}

// GetExporterConfig resolves the exporter configuration for a signal from the
// standard OTEL_EXPORTER_OTLP_* environment variables.
func GetExporterConfig(signal SignalType) ExporterConfig {
	env := signalEnv{signal: signal}

	protocol := parseProtocol(env.get("PROTOCOL", string(ProtocolHTTPProtobuf)))
	endpoint := resolveEndpoint(env, protocol)

	insecure := strings.HasPrefix(endpoint, "http://")
	if v := env.get("INSECURE", ""); v != "" {
		insecure = isTrue(v)
	}

	return ExporterConfig{
		Endpoint:    endpoint,
		Protocol:    protocol,
		Headers:     parseHeaders(env.get("HEADERS", "")),
		Timeout:     parseDuration(env.get("TIMEOUT", ""), 10*time.Second),
		Insecure:    insecure,
		Compression: env.get("COMPRESSION", ""),
	}
}

func parseProtocol(s string) Protocol {
	switch strings.ToLower(s) {
	case "grpc":
		return ProtocolGRPC
	case "http/json":
		return ProtocolHTTPJSON
	default:
		return ProtocolHTTPProtobuf
	}
}

// resolveEndpoint prefers the signal-specific endpoint as-is, then the base
// endpoint with the signal path appended, then the protocol default.
func resolveEndpoint(env signalEnv, protocol Protocol) string {
	if ep := os.Getenv(env.specific("ENDPOINT")); ep != "" {
		return normalizeEndpoint(ep, protocol)
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return appendSignalPath(normalizeEndpoint(ep, protocol), env.signal, protocol)
	}
	if protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318/v1/" + string(env.signal)
}

// normalizeEndpoint reduces gRPC endpoints to host:port and gives HTTP
// endpoints a scheme.
func normalizeEndpoint(endpoint string, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "https://" + endpoint
	}
	return endpoint
}

func appendSignalPath(endpoint string, signal SignalType, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		return endpoint
	}

	signalPath := "/v1/" + string(signal)
	u, err := url.Parse(endpoint)
	if err != nil {
		return strings.TrimSuffix(endpoint, "/") + signalPath
	}
	if strings.HasSuffix(u.Path, signalPath) {
		return endpoint
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + signalPath
	return u.String()
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// parseHeaders parses "key1=value1,key2=value2". Values keep everything after
// the first '=' so base64 credentials survive.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	for _, pair := range strings.Split(headerStr, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.Index(pair, "="); idx > 0 {
			key := strings.TrimSpace(pair[:idx])
			headers[key] = pair[idx+1:]
			slog.Debug("Parsed OTEL header", "key", key, "value_length", len(pair)-idx-1)
		}
	}
	return headers
}

// parseDuration accepts Go durations ("10s") and the OTEL milliseconds form ("10000").
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
