package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"odptbus/pkg/config"
	"odptbus/pkg/logging"
	"odptbus/pkg/metrics"
	"odptbus/pkg/odpt"
	"odptbus/pkg/pipeline"
	"odptbus/pkg/profiling"
	"odptbus/pkg/tracing"
)

func main() {
	// Registered first so it runs after the telemetry shutdowns have flushed.
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// Command line flags. Each falls back to its environment variable, then
	// to the config file, then to the built-in default.
	var (
		configPath   = flag.String("config", getEnv("ODPT_CONFIG", ""), "Path to a YAML config file")
		dryRun       = flag.Bool("dry-run", isTrue(os.Getenv("ODPT_DRY_RUN")), "Print results to stdout instead of sending to Loki")
		baseURL      = flag.String("base-url", getEnv("ODPT_BASE_URL", ""), "ODPT API base URL")
		realtimeFeed = flag.String("realtime-feed", getEnv("ODPT_REALTIME_FEED", ""), "GTFS realtime feed name")
		timeout      = flag.String("timeout", getEnv("ODPT_TIMEOUT", ""), "Request timeout, 0 for none")
		cacheTTL     = flag.String("cache-ttl", getEnv("ODPT_CACHE_TTL", ""), "How long stops, routes and timetables are reused between polls")
		commandList  = flag.String("commands", getEnv("ODPT_COMMANDS", ""), "Commands to run, comma-separated")
		format       = flag.String("format", getEnv("ODPT_FORMAT", ""), "Dry run output format: json, xml, pbtext or pb")
		stopName     = flag.String("stop-name", getEnv("ODPT_STOP_NAME", ""), "Only keep stops whose name contains this")
		dedupe       = flag.Bool("dedupe", isTrue(os.Getenv("ODPT_DEDUPE")), "Keep one stop pole per stop name")
		lokiURL      = flag.String("loki-url", getEnv("ODPT_LOKI_URL", ""), "Grafana Loki URL")
		lokiUser     = flag.String("loki-user", getEnv("ODPT_LOKI_USER", ""), "Loki username (for Grafana Cloud authentication)")
		lokiPassword = flag.String("loki-password", getEnv("ODPT_LOKI_PASSWORD", ""), "Loki password/token (for Grafana Cloud authentication)")
		interval     = flag.String("interval", getEnv("ODPT_INTERVAL", ""), "Polling interval, empty to run once")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "ODPT Bus Open Data Pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Fetches bus stops, route patterns, stop timetables and realtime vehicle\n")
		fmt.Fprintf(os.Stderr, "positions from the Japanese Open Data for Public Transportation API and\n")
		fmt.Fprintf(os.Stderr, "prints them or sends them to Grafana Loki.\n\n")
		fmt.Fprintf(os.Stderr, "Commands: get_bus_stops, get_bus_routes, get_bus_timetables, get_bus_realtime\n")
		fmt.Fprintf(os.Stderr, "          (aliases: stops, routes, timetables, realtime)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ODPT_CONFIG        - YAML config file\n")
		fmt.Fprintf(os.Stderr, "  ODPT_BASE_URL      - API base URL (default: %s)\n", odpt.DefaultBaseURL)
		fmt.Fprintf(os.Stderr, "  ODPT_REALTIME_FEED - Realtime feed name (default: %s)\n", odpt.DefaultRealtimeFeed)
		fmt.Fprintf(os.Stderr, "  ODPT_TIMEOUT       - Request timeout (default: none)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_CACHE_TTL     - Static dataset cache TTL (default: disabled)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_COMMANDS      - Commands, comma-separated (default: get_bus_realtime)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_FORMAT        - Dry run output format (default: json)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_DRY_RUN       - Print instead of sending to Loki\n")
		fmt.Fprintf(os.Stderr, "  ODPT_LOKI_URL      - Loki URL (default: http://localhost:3100)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_LOKI_USER     - Loki username (for Grafana Cloud)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_LOKI_PASSWORD - Loki password/token (for Grafana Cloud)\n")
		fmt.Fprintf(os.Stderr, "  ODPT_INTERVAL      - Polling interval (default: run once)\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL          - debug, info, warn or error (default: info)\n")
		fmt.Fprintf(os.Stderr, "  LOG_FORMAT         - text or json (default: text)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Print realtime vehicle positions once\n")
		fmt.Fprintf(os.Stderr, "  %s --dry-run\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Print Tokyo Station stops as XML\n")
		fmt.Fprintf(os.Stderr, "  %s --dry-run --commands=stops --stop-name=東京駅 --dedupe --format=xml\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Export realtime positions as a GTFS-Realtime protobuf\n")
		fmt.Fprintf(os.Stderr, "  %s --dry-run --commands=realtime --format=pb > vehicles.pb\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Poll every 30s and send to Grafana Cloud\n")
		fmt.Fprintf(os.Stderr, "  %s --commands=realtime --interval=30s \\\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    --loki-url=https://logs-prod-us-central1.grafana.net \\\n")
		fmt.Fprintf(os.Stderr, "    --loki-user=123456 --loki-password=your_token\n\n")
	}

	flag.Parse()

	logging.InitLogging()

	var fileCfg config.AppConfig
	if *configPath != "" {
		var err error
		fileCfg, err = config.Load(*configPath)
		if err != nil {
			fatal("Failed to load config", err)
		}
		slog.Debug("Loaded config file", "path", *configPath)
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	// pick returns the flag value when it came from the command line or the
	// environment, otherwise the file value, otherwise def.
	pick := func(name, envKey, flagVal, fileVal, def string) string {
		if explicit[name] || os.Getenv(envKey) != "" {
			return flagVal
		}
		if fileVal != "" {
			return fileVal
		}
		return def
	}
	pickBool := func(name, envKey string, flagVal, fileVal bool) bool {
		if explicit[name] || os.Getenv(envKey) != "" {
			return flagVal
		}
		return fileVal
	}

	fileTimeout := ""
	if d := fileCfg.ODPT.Timeout(); d > 0 {
		fileTimeout = d.String()
	}

	timeoutDuration, err := parseDuration(pick("timeout", "ODPT_TIMEOUT", *timeout, fileTimeout, ""))
	if err != nil {
		fatal("Invalid timeout format", err)
	}
	cacheDuration, err := parseDuration(pick("cache-ttl", "ODPT_CACHE_TTL", *cacheTTL, fileCfg.ODPT.CacheTTL, ""))
	if err != nil {
		fatal("Invalid cache TTL format", err)
	}
	intervalDuration, err := parseDuration(pick("interval", "ODPT_INTERVAL", *interval, fileCfg.Pipeline.Interval, ""))
	if err != nil {
		fatal("Invalid interval format", err)
	}

	commandNames := splitList(pick("commands", "ODPT_COMMANDS", *commandList, strings.Join(fileCfg.Pipeline.Commands, ","), "get_bus_realtime"))

	cfg := pipeline.Config{
		DryRun:       pickBool("dry-run", "ODPT_DRY_RUN", *dryRun, fileCfg.Pipeline.DryRun),
		BaseURL:      pick("base-url", "ODPT_BASE_URL", *baseURL, fileCfg.ODPT.BaseURL, odpt.DefaultBaseURL),
		RealtimeFeed: pick("realtime-feed", "ODPT_REALTIME_FEED", *realtimeFeed, fileCfg.ODPT.RealtimeFeed, odpt.DefaultRealtimeFeed),
		Timeout:      timeoutDuration,
		CacheTTL:     cacheDuration,
		Commands:     commandNames,
		Format:       pick("format", "ODPT_FORMAT", *format, fileCfg.Pipeline.Format, "json"),
		StopName:     pick("stop-name", "ODPT_STOP_NAME", *stopName, fileCfg.Pipeline.StopName, ""),
		Dedupe:       pickBool("dedupe", "ODPT_DEDUPE", *dedupe, fileCfg.Pipeline.Dedupe),
		LokiURL:      pick("loki-url", "ODPT_LOKI_URL", *lokiURL, fileCfg.Loki.URL, "http://localhost:3100"),
		LokiUser:     pick("loki-user", "ODPT_LOKI_USER", *lokiUser, fileCfg.Loki.User, ""),
		LokiPassword: pick("loki-password", "ODPT_LOKI_PASSWORD", *lokiPassword, fileCfg.Loki.Password, ""),
		Interval:     intervalDuration,
	}

	shutdownTracing, err := tracing.InitTracing()
	if err != nil {
		fatal("Failed to initialize tracing", err)
	}
	defer shutdownTracing()

	shutdownMetrics, err := metrics.InitMetrics()
	if err != nil {
		fatal("Failed to initialize metrics", err)
	}
	defer shutdownMetrics()

	shutdownProfiling, err := profiling.InitProfiling()
	if err != nil {
		fatal("Failed to initialize profiling", err)
	}
	defer shutdownProfiling()

	pipelineInstance, err := pipeline.New(cfg)
	if err != nil {
		fatal("Failed to create pipeline", err)
	}

	if cfg.DryRun {
		slog.Info("Starting ODPT pipeline in DRY RUN mode", "format", cfg.Format)
	} else {
		slog.Info("Starting ODPT pipeline in PRODUCTION mode", "loki_url", cfg.LokiURL)
	}
	slog.Info("Pipeline settings",
		"commands", pipelineInstance.Commands(),
		"base_url", cfg.BaseURL,
		"realtime_feed", cfg.RealtimeFeed,
		"interval", intervalDuration,
		"timeout", timeoutDuration,
		"cache_ttl", cacheDuration,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	errChan := make(chan error, 1)
	go func() {
		errChan <- pipelineInstance.Run(ctx)
	}()

wait:
	for {
		select {
		case sig := <-sigChan:
			// SIGHUP re-fetches static datasets on the next cycle
			if sig == syscall.SIGHUP {
				if !pipelineInstance.FlushCache() {
					slog.Info("Received SIGHUP but no cache TTL is configured")
				}
				continue
			}
			slog.Info("Received signal, shutting down gracefully", "signal", sig)
			cancel()
			select {
			case <-time.After(5 * time.Second):
				slog.Warn("Shutdown timeout, forcing exit")
			case <-errChan:
				slog.Info("Pipeline stopped")
			}
			break wait
		case err := <-errChan:
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Pipeline error", "error", err)
				exitCode = 1
				return
			}
			slog.Info("Pipeline stopped")
			break wait
		}
	}

	slog.Info("ODPT pipeline shutdown complete")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// getEnv returns the value of an environment variable or a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
