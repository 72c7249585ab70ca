package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/adapter"
	"github.com/sbs27/salespipe/adapter/redis"
	"github.com/sbs27/salespipe/adapter/webhook"
	"github.com/sbs27/salespipe/archive"
	"github.com/sbs27/salespipe/cli/config"
	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/runtime"
	"github.com/sbs27/salespipe/sink"
	"github.com/sbs27/salespipe/types"
)

// Exit codes. A partial failure still exits 0: the data was preserved and
// the run is recoverable, which scripts should not treat as a hard error.
const (
	exitSuccess = 0
	exitRun     = 1
	exitUsage   = 2
)

// ArchiveDisabled is the --archive-backend value that turns artifact
// persistence off even when the config file enables it.
const ArchiveDisabled = "none"

// RunCommand returns the run command, the one-shot pipeline entrypoint.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one pipeline run: extract, enrich, load",
		Flags: joinFlags(
			[]cli.Flag{
				ConfigFlag,
				&cli.StringFlag{
					Name:  "run-id",
					Usage: "Run identifier (default: generated)",
				},
			},
			pipelineFlags(),
			sinkFlags(),
			archiveFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:  "report",
					Usage: "Write the run report as JSON to this path (- for stderr)",
				},
				&cli.BoolFlag{
					Name:    "quiet",
					Aliases: []string{"q"},
					Usage:   "Suppress the human-readable run summary",
				},
				logLevelFlag(),
			},
		),
		Action: runAction,
	}
}

// pipelineStack is everything a pipeline run needs besides run
// identity: resolved collaborators built from flags over config.
type pipelineStack struct {
	driver    string
	logger    *log.Logger
	archive   *archive.Archive
	adapters  adapter.Adapter
	collector *metrics.Collector
}

// buildStack validates flag/config choices and constructs the run
// collaborators. Callers own close.
func buildStack(c *cli.Context, cfg *config.Config) (*pipelineStack, error) {
	driver := resolveString(c, "sink-driver", cfg.Sink.Driver)
	if err := validateDriver(driver); err != nil {
		return nil, err
	}
	backend := resolveString(c, "archive-backend", cfg.Archive.Backend)
	if err := validateBackend(backend); err != nil {
		return nil, err
	}

	logger := log.New(resolveString(c, "log-level", cfg.Logging.Level))

	arch, err := buildArchive(c, cfg, backend)
	if err != nil {
		return nil, fmt.Errorf("archive setup failed: %w", err)
	}
	adapters, err := buildAdapters(cfg.Adapters)
	if err != nil {
		return nil, fmt.Errorf("adapter setup failed: %w", err)
	}

	return &pipelineStack{
		driver:    driver,
		logger:    logger,
		archive:   arch,
		adapters:  adapters,
		collector: metrics.NewCollector(driver, backendLabel(backend)),
	}, nil
}

// close releases the stack's adapters. Errors are logged, not returned.
func (s *pipelineStack) close() {
	if s.adapters == nil {
		return
	}
	if err := s.adapters.Close(); err != nil {
		s.logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	stack, err := buildStack(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer stack.close()

	runID := c.String("run-id")
	if runID == "" {
		runID = NewRunID(time.Now())
	}

	runCfg := &runtime.Config{
		CSVPath:   resolveString(c, "csv", cfg.Pipeline.CSV),
		Source:    resolveString(c, "source", cfg.Pipeline.Source),
		Sink:      buildSinkConfig(c, cfg, stack.driver),
		RunMeta:   types.RunMeta{RunID: runID, Trigger: types.TriggerCLI},
		Archive:   stack.archive,
		Adapters:  stack.adapters,
		Collector: stack.collector,
	}

	orchestrator, err := runtime.New(runCfg, stack.logger)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	report := orchestrator.Execute(ctx)

	if !c.Bool("quiet") {
		fmt.Fprint(c.App.Writer, runtime.RenderText(report))
	}
	if path := c.String("report"); path != "" {
		if err := runtime.WriteRunReport(report, path); err != nil {
			return cli.Exit(fmt.Sprintf("write report: %v", err), exitRun)
		}
	}

	if code := report.Outcome.ExitCode(); code != exitSuccess {
		// The summary already carries the failure detail; no extra message.
		return cli.Exit("", code)
	}
	return nil
}

// loadConfig reads the YAML config named by --config (flag or
// SALESPIPE_CONFIG). Without it, built-in defaults apply.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if !c.IsSet("config") {
		return config.Default(), nil
	}
	return config.Load(c.String("config"))
}

// resolveString returns the flag value when explicitly set, the config
// value when present, and the flag's default otherwise.
func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if configValue != "" {
		return configValue
	}
	return c.String(name)
}

// resolveInt is resolveString for integer flags. Zero config values count
// as unset; none of the pipeline's integer knobs accept zero.
func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if configValue != 0 {
		return configValue
	}
	return c.Int(name)
}

// resolveDuration is resolveString for duration flags.
func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if configValue != 0 {
		return configValue
	}
	return c.Duration(name)
}

func validateDriver(driver string) error {
	switch driver {
	case sink.DriverPostgres, sink.DriverMySQL:
		return nil
	default:
		return fmt.Errorf("invalid sink driver: %q (must be one of: %s)",
			driver, strings.Join([]string{sink.DriverMySQL, sink.DriverPostgres}, ", "))
	}
}

func validateBackend(backend string) error {
	switch backend {
	case archive.BackendFS, archive.BackendS3, archive.BackendMemory, ArchiveDisabled, "":
		return nil
	default:
		return fmt.Errorf("invalid archive backend: %q (must be one of: %s)",
			backend, strings.Join([]string{archive.BackendFS, archive.BackendMemory, ArchiveDisabled, archive.BackendS3}, ", "))
	}
}

// backendLabel normalizes the archive backend for metrics dimensions.
func backendLabel(backend string) string {
	if backend == "" || backend == ArchiveDisabled {
		return ArchiveDisabled
	}
	return backend
}

// buildSinkConfig merges sink flags over the config file.
func buildSinkConfig(c *cli.Context, cfg *config.Config, driver string) sink.Config {
	return sink.Config{
		Driver:     driver,
		Host:       resolveString(c, "sink-host", cfg.Sink.Host),
		Port:       resolveInt(c, "sink-port", cfg.Sink.Port),
		Database:   resolveString(c, "sink-database", cfg.Sink.Database),
		User:       resolveString(c, "sink-user", cfg.Sink.User),
		Password:   resolveString(c, "sink-password", cfg.Sink.Password),
		SSLMode:    resolveString(c, "sink-sslmode", cfg.Sink.SSLMode),
		BatchSize:  resolveInt(c, "batch-size", cfg.Pipeline.BatchSize),
		MaxRetries: resolveInt(c, "max-retries", cfg.Sink.MaxRetries),
		RetryDelay: resolveDuration(c, "retry-delay", cfg.Sink.RetryDelay.Duration),
	}
}

// buildArchive constructs the artifact archive, or nil when disabled.
func buildArchive(c *cli.Context, cfg *config.Config, backend string) (*archive.Archive, error) {
	if backend == "" || backend == ArchiveDisabled {
		return nil, nil
	}
	return archive.New(archive.Config{
		Backend: backend,
		Path:    resolveString(c, "archive-path", cfg.Archive.Path),
		Dataset: cfg.Archive.Dataset,
		S3: archive.S3Config{
			Region:       cfg.Archive.S3.Region,
			Endpoint:     cfg.Archive.S3.Endpoint,
			UsePathStyle: cfg.Archive.S3.UsePathStyle,
		},
	})
}

// buildAdapters constructs the notification fan-out from the config's
// adapter blocks. Returns nil when no adapter is configured.
func buildAdapters(cfg config.AdaptersConfig) (adapter.Adapter, error) {
	var list adapter.Multi

	if cfg.Webhook != nil {
		retries := webhook.DefaultRetries
		if cfg.Webhook.Retries != nil {
			retries = *cfg.Webhook.Retries
		}
		a, err := webhook.New(webhook.Config{
			URL:     cfg.Webhook.URL,
			Headers: cfg.Webhook.Headers,
			Timeout: cfg.Webhook.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		list = append(list, a)
	}

	if cfg.Redis != nil {
		retries := redis.DefaultRetries
		if cfg.Redis.Retries != nil {
			retries = *cfg.Redis.Retries
		}
		a, err := redis.New(redis.Config{
			URL:     cfg.Redis.URL,
			Channel: cfg.Redis.Channel,
			Timeout: cfg.Redis.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			_ = list.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		list = append(list, a)
	}

	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

// NewRunID mints a run identifier that sorts by start time and stays
// unique within a second.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// signalContext derives a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
