package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export/jobs"
	"mercator-hq/tabula/pkg/export/pipeline"
	"mercator-hq/tabula/pkg/export/schedule"
	"mercator-hq/tabula/pkg/server"
	"mercator-hq/tabula/pkg/server/api"
	"mercator-hq/tabula/pkg/telemetry/health"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	noWatch       bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job API and scheduled exports",
	Long: `Start the export service.

The service accepts export payloads on the HTTP job API, runs them on a
bounded worker pool, and submits the exports listed under "schedules" when
their cron expression fires. Prometheus metrics and health probes are served
on the same address.

When a config file is given it is watched, and schedule changes apply
without a restart.

Examples:
  # Start with a config file
  tabula serve --config /etc/tabula/config.yaml

  # Override listen address
  tabula serve --listen 0.0.0.0:8090

  # Validate config without starting
  tabula serve --config config.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	entries, err := schedule.EntriesFrom(cfg.Schedules)
	if err != nil {
		return cli.NewConfigError("schedules", err.Error())
	}
	pcfg, err := pipeline.ConfigFrom(&cfg.Export)
	if err != nil {
		return cli.NewConfigError("export", err.Error())
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintf(out, "✓ Configuration valid (%d schedules)\n", len(entries))
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer tracer.Shutdown(context.Background())

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	comps, err := openComponents(cfg)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer comps.Close()

	exporter := pipeline.New(comps.catalog, comps.files, comps.notifier, pcfg,
		pipeline.WithMetrics(collector),
		pipeline.WithTracer(tracer),
	)
	queue := jobs.NewQueue(exporter, jobs.ConfigFrom(&cfg.Export.Jobs), jobs.WithMetrics(collector))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := queue.Close(closeCtx); err != nil {
			slog.Warn("export jobs cancelled during shutdown", "error", err)
		}
	}()

	scheduler := schedule.NewScheduler(queue, schedule.WithMetrics(collector))
	if err := scheduler.Apply(entries); err != nil {
		return cli.NewConfigError("schedules", err.Error())
	}
	config.OnReload(func(c *config.Config) {
		if err := scheduler.ApplyConfig(c.Schedules); err != nil {
			slog.Error("reloaded schedules rejected, keeping previous schedules", "error", err)
		}
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfgFile != "" && !serveFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.Register("catalog", health.PingCheck(comps.catalog), true)
	checker.Register("files", health.PingCheck(comps.files), true)

	opts := []server.Option{
		server.WithHealth(checker, &cfg.Telemetry.Health),
		server.WithVersion(versionInfo()),
	}
	if collector != nil {
		opts = append(opts, server.WithMetrics(collector, cfg.Telemetry.Metrics.Path))
	}
	srv := server.New(&cfg.Server, api.NewHandler(queue, scheduler, cfg.Server.MaxBodyBytes), opts...)

	fmt.Fprintf(out, "Tabula v%s\n", Version)
	fmt.Fprintf(out, "✓ Export queue started (%d workers)\n", cfg.Export.Jobs.Workers)
	fmt.Fprintf(out, "✓ %d schedules loaded\n", len(entries))
	fmt.Fprintf(out, "✓ Job API on http://%s/exports\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
