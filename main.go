package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"jvmScope/clock"
	"jvmScope/collector"
	"jvmScope/config"
	"jvmScope/converter"
	"jvmScope/exporter"
	"jvmScope/logs"
	"jvmScope/processor"
	"jvmScope/sender"

	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// threadDumpEvent is the source event name of every sample taken from a
// thread dump.
const threadDumpEvent = "jdk.ThreadDump"

func printWelcomeBanner(cfg *config.Config) {

	bannerLines := []string{
		"       ___   ____  ___ _____                     ",
		"      / / | / /  |/  // ___/_________  ____  ___ ",
		" __  / /| |/ / /|_/ / \\__ \\/ ___/ __ \\/ __ \\/ _ \\",
		"/ /_/ / |   / /  / / ___/ / /__/ /_/ / /_/ /  __/",
		"\\____/  |__/_/  /_/ /____/\\___/\\____/ .___/\\___/ ",
		"                                   /_/            ",
	}

	// Print banner in orange color
	for _, line := range bannerLines {
		fmt.Println("\033[0;33m" + line + "\033[0m")
	}

	fmt.Printf("version %s\n\n", version)

	fmt.Println("🚀 Starting jvmScope with configuration:")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📡 OTLP Endpoint:      %s\n", cfg.Endpoint)
	fmt.Printf("📝 Service Name:       %s\n", cfg.ServiceName)
	if cfg.PID != "" {
		fmt.Printf("☕ JVM PID:            %s\n", cfg.PID)
		fmt.Printf("⏱️  Dump Interval:      %v\n", cfg.Interval)
	} else {
		fmt.Printf("📄 Input File:         %s\n", cfg.InputPath)
	}
	fmt.Printf("🧱 Stack Depth:        %d\n", cfg.StackDepth)
	fmt.Printf("🗜️  Data Format:        %s\n", cfg.DataFormat)
	fmt.Printf("📦 Batch Limit:        %d\n", cfg.MaxBatchSize)
	fmt.Printf("⏳ Batch Interval:     %v\n", cfg.MaxTimeBetweenBatches)
	fmt.Printf("🔄 Concurrent Limit:   %d\n", cfg.ConcurrentLimit)
	if len(cfg.Tags) > 0 {
		fmt.Printf("🏷️  Tags:\n")
		keys := make([]string, 0, len(cfg.Tags))
		for k := range cfg.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("   ├─ %s: %s\n", k, cfg.Tags[k])
		}
	}
	if cfg.MetricsAddr != "" {
		fmt.Printf("📈 Metrics:            http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Printf("🐛 Debug Mode:         %v\n", cfg.Debug)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
}

// parseFlags fills cfg from the command line, JVMSCOPE_* environment
// variables and an optional config file, in that order of precedence.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("jvmScope", flag.ContinueOnError)

	// Core settings
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "OTLP/HTTP endpoint, e.g. http://localhost:4318")
	fs.StringVar(&cfg.AuthToken, "auth", cfg.AuthToken, "Bearer token for the OTLP endpoint")
	fs.StringVar(&cfg.ServiceName, "serviceName", cfg.ServiceName, "Service name resource attribute")
	var tags multiFlag
	fs.Var(&tags, "tags", "Resource attributes in format key=value")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	fs.StringVar(&cfg.MetricsAddr, "metricsAddr", cfg.MetricsAddr, "Address to serve Prometheus metrics on, empty to disable")

	// Collection settings
	fs.StringVar(&cfg.PID, "pid", cfg.PID, "PID of the JVM to dump with jcmd")
	fs.StringVar(&cfg.JcmdPath, "jcmd", cfg.JcmdPath, "Path to the jcmd binary")
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "Read thread dumps from this file instead of jcmd, - for stdin")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Time between thread dumps")
	fs.IntVar(&cfg.StackDepth, "stackDepth", cfg.StackDepth, "Maximum frames per stack, 0 for unlimited")
	fs.BoolVar(&cfg.IncludeInternalStacks, "includeInternalStacks", cfg.IncludeInternalStacks, "Also export JVM housekeeping threads and JDK-only stacks")

	// Export settings
	fs.StringVar(&cfg.DataFormat, "format", cfg.DataFormat, "Data format: pprof, pprof-gzip, pprof-base64, pprof-gzip-base64 or text")
	fs.IntVar(&cfg.MaxBatchSize, "batch", cfg.MaxBatchSize, "Maximum records per batch")
	fs.DurationVar(&cfg.MaxTimeBetweenBatches, "batchInterval", cfg.MaxTimeBetweenBatches, "Maximum time between batches")
	fs.IntVar(&cfg.ConcurrentLimit, "concurrent", cfg.ConcurrentLimit, "Maximum concurrent requests")
	fs.StringVar(&cfg.EventPeriodsPath, "eventSettings", cfg.EventPeriodsPath, "YAML file with event settings such as jdk.ThreadDump period")

	_ = fs.String("config", "", "Config file with one flag per line")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("JVMSCOPE"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return err
	}

	// Parse tags
	if len(tags) > 0 {
		cfg.Tags = make(map[string]string, len(tags))
	}
	for _, tag := range tags {
		key, value := parseTag(tag)
		if key == "" {
			return fmt.Errorf("invalid tag %q, expected key=value", tag)
		}
		cfg.Tags[key] = value
	}
	return nil
}

func main() {
	cfg := config.NewDefault()
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Error parsing flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	// Print welcome banner with configuration
	printWelcomeBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Error processing: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	format, err := converter.ParseDataFormat(cfg.DataFormat)
	if err != nil {
		return err
	}
	periods, err := eventPeriods(cfg)
	if err != nil {
		return err
	}

	metrics := processor.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	s := sender.New(sender.Config{
		Endpoint:    cfg.Endpoint,
		AuthToken:   cfg.AuthToken,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Tags:        cfg.Tags,
	})

	var executor processor.Executor
	if cfg.ConcurrentLimit > 1 {
		executor = processor.NewPoolExecutor(cfg.ConcurrentLimit)
	}
	p := processor.New(processor.Config{
		Name:                  "profiling",
		MaxBatchSize:          cfg.MaxBatchSize,
		MaxTimeBetweenBatches: cfg.MaxTimeBetweenBatches,
		Executor:              executor,
		Metrics:               metrics,
	}, s.Send)

	var exp exporter.CPUEventExporter
	if format == converter.Text {
		exp = exporter.NewPlainTextCPUExporter(p, periods)
	} else {
		exp, err = exporter.NewPprofCPUExporter(exporter.PprofCPUExporterConfig{
			Processor:  p,
			Format:     format,
			Periods:    periods,
			StackDepth: cfg.StackDepth,
		})
		if err != nil {
			return err
		}
	}

	if err := p.Start(); err != nil {
		return err
	}

	collectErr := collect(ctx, cfg, exp)

	if err := p.Stop(); err != nil {
		log.Errorf("Error stopping processor: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		log.Errorf("Error waiting for pending batches: %v", err)
	}
	log.Println("Sent")
	return collectErr
}

// collect feeds thread dumps to exp, one flush per dump, until the input
// is exhausted or ctx is cancelled.
func collect(ctx context.Context, cfg *config.Config, exp exporter.CPUEventExporter) error {
	filter := collector.Filter{IncludeInternals: cfg.IncludeInternalStacks}
	if cfg.InputPath != "" {
		dump, err := readInput(cfg.InputPath)
		if err != nil {
			return err
		}
		dump.Timestamp = clock.Real().Now()
		return exportDump(exp, dump, filter)
	}

	dumps, err := collector.New(cfg, clock.Real()).Start(ctx)
	if err != nil {
		return err
	}
	for dump := range dumps {
		if err := exportDump(exp, dump, filter); err != nil {
			log.Errorf("Error exporting thread dump: %v", err)
		}
	}
	return nil
}

func readInput(path string) (*collector.Dump, error) {
	if path == "-" {
		return collector.ReadDump(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return collector.ReadDump(f)
}

func exportDump(exp exporter.CPUEventExporter, dump *collector.Dump, filter collector.Filter) error {
	for _, block := range dump.Blocks {
		if !filter.Keep(block) {
			continue
		}
		exp.Export(exporter.Event{
			RawStack:        block,
			SourceEventName: threadDumpEvent,
			Time:            dump.Timestamp,
		})
	}
	return exp.Flush()
}

// eventPeriods loads event settings from file, or falls back to the dump
// interval as the thread dump period.
func eventPeriods(cfg *config.Config) (*exporter.EventPeriods, error) {
	settings := exporter.Settings{}
	if cfg.EventPeriodsPath != "" {
		loaded, err := exporter.LoadSettings(cfg.EventPeriodsPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if _, ok := settings[threadDumpEvent+"#period"]; !ok && cfg.PID != "" {
		settings[threadDumpEvent+"#period"] = cfg.Interval.String()
	}
	return exporter.NewEventPeriods(settings.Lookup), nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("Error serving metrics: %v", err)
	}
}

// multiFlag implements flag.Value interface to support multiple flag values
// for the same flag (e.g., multiple -tags flags)
type multiFlag []string

func (f *multiFlag) String() string {
	return fmt.Sprint(*f)
}

func (f *multiFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// parseTag splits a "key=value" string into separate key and value.
// Returns empty strings if the format is invalid.
func parseTag(tag string) (string, string) {
	key, value, ok := strings.Cut(tag, "=")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

// Compile-time check that the batching processor can feed the exporters.
var _ exporter.LogProcessor = (*processor.Batching[logs.Entry])(nil)
