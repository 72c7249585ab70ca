package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/runtime"
	"github.com/sbs27/salespipe/sched"
	"github.com/sbs27/salespipe/types"
)

// ServeCommand returns the serve command: the scheduler and its control
// API, the long-running mode of the pipeline.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the scheduler and control API",
		Flags: joinFlags(
			[]cli.Flag{
				ConfigFlag,
				&cli.StringFlag{
					Name:    "listen",
					Usage:   "Control API bind address (host:port)",
					EnvVars: []string{"SALESPIPE_LISTEN"},
				},
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "Gap between scheduled runs (e.g. 5m)",
				},
			},
			pipelineFlags(),
			sinkFlags(),
			archiveFlags(),
			[]cli.Flag{logLevelFlag()},
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	stack, err := buildStack(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer stack.close()

	// Run parameters are resolved once; every scheduled and manual run
	// uses the same pipeline configuration.
	csvPath := resolveString(c, "csv", cfg.Pipeline.CSV)
	sourceName := resolveString(c, "source", cfg.Pipeline.Source)
	sinkCfg := buildSinkConfig(c, cfg, stack.driver)

	runner := func(ctx context.Context, trigger types.Trigger) *types.RunReport {
		runCfg := &runtime.Config{
			CSVPath:   csvPath,
			Source:    sourceName,
			Sink:      sinkCfg,
			RunMeta:   types.RunMeta{RunID: NewRunID(time.Now()), Trigger: trigger},
			Archive:   stack.archive,
			Adapters:  stack.adapters,
			Collector: stack.collector,
		}
		orchestrator, err := runtime.New(runCfg, stack.logger)
		if err != nil {
			stack.logger.Error("run setup failed", map[string]any{"error": err.Error()})
			return nil
		}
		return orchestrator.Execute(ctx)
	}

	scheduler, err := sched.New(sched.Config{
		Interval:  resolveDuration(c, "interval", cfg.Schedule.Interval.Duration),
		Runner:    runner,
		Collector: stack.collector,
	}, stack.logger)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	scheduler.Start(ctx)

	server := sched.NewServer(scheduler, stack.collector, stack.logger)
	serveErr := server.Serve(ctx, resolveString(c, "listen", cfg.Schedule.Listen))

	// Any in-flight run drains before the process exits.
	scheduler.Stop()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return cli.Exit(fmt.Sprintf("control api failed: %v", serveErr), exitRun)
	}
	return nil
}
