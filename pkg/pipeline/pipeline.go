package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"odptbus/pkg/commands"
	"odptbus/pkg/loki"
	"odptbus/pkg/metrics"
	"odptbus/pkg/odpt"
	"odptbus/pkg/render"
	"odptbus/pkg/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Pipeline struct {
	config     Config
	commands   []string
	registry   *commands.Registry
	cache      *commands.CachedRetriever
	renderer   *render.Renderer
	lokiClient *loki.Client
	output     io.Writer
	tracer     trace.Tracer
}

type Config struct {
	DryRun       bool
	BaseURL      string
	RealtimeFeed string
	Timeout      time.Duration
	CacheTTL     time.Duration // static datasets are re-fetched at most this often; zero disables
	Commands     []string
	Format       string
	StopName     string // only stops whose name contains this are kept
	Dedupe       bool   // keep one stop pole per name
	LokiURL      string
	LokiUser     string
	LokiPassword string
	Interval     time.Duration // zero runs a single pass
	Output       io.Writer     // dry-run destination, stdout when nil
}

func New(config Config) (*Pipeline, error) {
	if len(config.Commands) == 0 {
		return nil, fmt.Errorf("at least one command is required")
	}

	format, err := render.ParseFormat(config.Format)
	if err != nil {
		return nil, err
	}

	if !config.DryRun && config.LokiURL == "" {
		return nil, fmt.Errorf("Loki URL is required unless running in dry-run mode")
	}

	client := odpt.NewClient(config.BaseURL, config.RealtimeFeed, config.Timeout)
	retriever := commands.NewCachedRetriever(client, config.CacheTTL)
	registry := commands.NewRegistry(retriever)

	seen := make(map[string]bool, len(config.Commands))
	var names []string
	for _, name := range config.Commands {
		canonical, ok := registry.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("unknown command: %s", name)
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		names = append(names, canonical)
	}

	if config.DryRun && (format == render.FormatPB || format == render.FormatPBText) {
		if len(names) != 1 || names[0] != commands.GetBusRealtime {
			return nil, fmt.Errorf("format %s only supports the %s command", format, commands.GetBusRealtime)
		}
	}

	pipeline := &Pipeline{
		config:   config,
		commands: names,
		registry: registry,
		renderer: render.NewRenderer(format),
		output:   config.Output,
		tracer:   otel.Tracer("pipeline"),
	}
	if cached, ok := retriever.(*commands.CachedRetriever); ok {
		pipeline.cache = cached
	}
	if pipeline.output == nil {
		pipeline.output = os.Stdout
	}

	// Only create Loki client if not in dry run mode
	if !config.DryRun {
		pipeline.lokiClient = loki.NewClient(config.LokiURL, config.LokiUser, config.LokiPassword)
	}

	return pipeline, nil
}

// Commands returns the canonical names of the commands run each cycle.
func (p *Pipeline) Commands() []string {
	return p.commands
}

// FlushCache drops the cached static datasets so the next cycle re-fetches
// them. It reports whether a cache was configured.
func (p *Pipeline) FlushCache() bool {
	if p.cache == nil {
		return false
	}
	p.cache.Flush()
	slog.Info("Static dataset cache flushed")
	return true
}

// Run processes once and, when an interval is configured, keeps polling until
// ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.config.Interval <= 0 {
		return p.processOnce(ctx)
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	slog.Info("Pipeline started", "interval", p.config.Interval, "commands", p.commands)

	if err := p.processOnce(ctx); err != nil {
		slog.Error("Error in initial processing", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Pipeline stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.processOnce(ctx); err != nil {
				slog.Error("Error processing", "error", err)
			}
		}
	}
}

// processOnce runs every command concurrently and delivers the results in
// command order. It fails only when every command failed.
func (p *Pipeline) processOnce(ctx context.Context) error {
	cycleID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "pipeline.process_once",
		trace.WithAttributes(
			attribute.String("cycle_id", cycleID),
			attribute.StringSlice("commands", p.commands),
			attribute.Bool("dry_run", p.config.DryRun),
			attribute.String("format", string(p.renderer.Format())),
		),
	)
	defer span.End()

	start := time.Now()

	results := make([]commands.Result, len(p.commands))
	var wg sync.WaitGroup
	for i, name := range p.commands {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = p.registry.Invoke(ctx, name)
		}(i, name)
	}
	wg.Wait()

	var failures []string
	totalRecords := 0
	for _, res := range results {
		if res.Failed() {
			failures = append(failures, fmt.Sprintf("%s: %s", res.Command, res.Error))
		} else {
			res = p.postProcess(res)
			totalRecords += len(res.Records())
		}

		if err := p.deliver(ctx, res); err != nil {
			slog.Error("Failed to deliver result", "command", res.Command, "error", err)
		}
	}

	duration := time.Since(start)
	slog.Debug("Cycle complete", "cycle_id", cycleID, "records", totalRecords, "failed", len(failures), "duration", duration)
	metrics.RecordCycle(ctx, duration, len(failures), len(results))

	span.SetAttributes(
		attribute.Int("total_records", totalRecords),
		attribute.Int("successful_commands", len(results)-len(failures)),
		attribute.Int("failed_commands", len(failures)),
		attribute.String("processing_duration", duration.String()),
	)

	if len(failures) == len(results) {
		return errors.New("all commands failed: " + strings.Join(failures, "; "))
	}
	return nil
}

// postProcess applies the stop name filter and dedupe to stop results.
func (p *Pipeline) postProcess(res commands.Result) commands.Result {
	stops, ok := res.Data.([]types.BusStop)
	if !ok {
		return res
	}

	stops = commands.FilterStopsByName(stops, p.config.StopName)
	if p.config.Dedupe {
		stops = commands.DedupeStopsByTitle(stops)
	}
	res.Data = stops
	return res
}

func (p *Pipeline) deliver(ctx context.Context, res commands.Result) error {
	if p.config.DryRun {
		return p.handleDryRun(ctx, res)
	}
	if res.Failed() {
		// Failures are logged by the registry; there is nothing to push.
		return nil
	}
	return p.sendToLoki(ctx, res)
}

func (p *Pipeline) handleDryRun(ctx context.Context, res commands.Result) error {
	_, span := p.tracer.Start(ctx, "pipeline.dry_run",
		trace.WithAttributes(attribute.String("command", res.Command)),
	)
	defer span.End()

	if err := p.renderer.Render(p.output, res); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("records_printed", len(res.Records())))
	return nil
}

func (p *Pipeline) sendToLoki(ctx context.Context, res commands.Result) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.send_to_loki",
		trace.WithAttributes(attribute.String("command", res.Command)),
	)
	defer span.End()

	if p.lokiClient == nil {
		err := fmt.Errorf("loki client not initialized")
		span.RecordError(err)
		return err
	}

	records := res.Records()
	if err := p.lokiClient.SendRecords(ctx, res.Command, records); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to send data to Loki: %w", err)
	}

	slog.Info("Sent records to Loki", "command", res.Command, "records", len(records))
	span.SetAttributes(attribute.Int("records_sent", len(records)))
	return nil
}
