package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
odpt:
  baseURL: https://api-public.odpt.org/api/v4/
  realtimeFeed: ToeiBus
  timeoutMS: 15000
  cacheTTL: 1h
loki:
  url: http://localhost:3100
  user: "123456"
  password: token
pipeline:
  commands: [get_bus_stops, realtime]
  interval: 1m
  format: xml
  stopName: 東京駅
  dedupe: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.ODPT.RealtimeFeed != "ToeiBus" {
		t.Errorf("RealtimeFeed = %q, want ToeiBus", cfg.ODPT.RealtimeFeed)
	}
	if cfg.ODPT.Timeout() != 15*time.Second {
		t.Errorf("Timeout() = %v, want 15s", cfg.ODPT.Timeout())
	}
	if d, _ := cfg.ODPT.CacheTTLDuration(); d != time.Hour {
		t.Errorf("CacheTTLDuration() = %v, want 1h", d)
	}
	if cfg.Loki.User != "123456" {
		t.Errorf("Loki.User = %q, want 123456", cfg.Loki.User)
	}
	if strings.Join(cfg.Pipeline.Commands, ",") != "get_bus_stops,realtime" {
		t.Errorf("Commands = %v", cfg.Pipeline.Commands)
	}
	if d, _ := cfg.Pipeline.IntervalDuration(); d != time.Minute {
		t.Errorf("IntervalDuration() = %v, want 1m", d)
	}
	if cfg.Pipeline.StopName != "東京駅" || !cfg.Pipeline.Dedupe {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if cfg.ODPT.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", cfg.ODPT.Timeout())
	}
	if d, _ := cfg.Pipeline.IntervalDuration(); d != 0 {
		t.Errorf("IntervalDuration() = %v, want 0", d)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad base URL", yaml: "odpt:\n  baseURL: not a url\n"},
		{name: "negative timeout", yaml: "odpt:\n  timeoutMS: -1\n"},
		{name: "bad feed name", yaml: "odpt:\n  realtimeFeed: ../etc\n"},
		{name: "bad cache TTL", yaml: "odpt:\n  cacheTTL: forever\n"},
		{name: "bad loki URL", yaml: "loki:\n  url: localhost\n"},
		{name: "user without password", yaml: "loki:\n  url: http://localhost:3100\n  user: admin\n"},
		{name: "unknown format", yaml: "pipeline:\n  format: csv\n"},
		{name: "empty command", yaml: "pipeline:\n  commands: [\"\"]\n"},
		{name: "bad interval", yaml: "pipeline:\n  interval: soon\n"},
		{name: "negative interval", yaml: "pipeline:\n  interval: -5s\n"},
		{name: "unknown key", yaml: "pipeline:\n  workers: 4\n"},
		{name: "not yaml", yaml: "odpt: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", tt.yaml)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.Format != "xml" {
		t.Errorf("Format = %q, want xml", cfg.Pipeline.Format)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Load of missing file expected error, got nil")
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	if _, err := Load(filepath.Join("..", "..", "config.example.yml")); err != nil {
		t.Errorf("config.example.yml does not load: %v", err)
	}
}
