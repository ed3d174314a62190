package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/accesslog/storage"
	"mercator-hq/webserv/pkg/admin"
	"mercator-hq/webserv/pkg/cgi"
	"mercator-hq/webserv/pkg/cli"
	"mercator-hq/webserv/pkg/config"
	"mercator-hq/webserv/pkg/handler"
	"mercator-hq/webserv/pkg/server"
	"mercator-hq/webserv/pkg/site"
	"mercator-hq/webserv/pkg/sitewatch"
	"mercator-hq/webserv/pkg/telemetry"
	"mercator-hq/webserv/pkg/telemetry/health"
	"mercator-hq/webserv/pkg/telemetry/logging"
	"mercator-hq/webserv/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run [site-file]",
	Short: "Start the web server",
	Long: `Start the web server with the given site file, or the one named by
server.site_file in webserv.yaml.

A site file that cannot be read or parsed is not fatal: the built-in default
(127.0.0.1:8080, root ./www) is served and a warning is logged. SIGHUP
reloads the site file; SIGINT and SIGTERM shut down gracefully.

Examples:
  # Start with the configured site file
  webserv run

  # Start with an explicit site file and debug logging
  webserv run conf/site.conf --log-level debug

  # Load everything without binding any socket
  webserv run --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "load configuration without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	snapshot := *config.GetConfig()
	cfg := &snapshot

	levelPinned := runFlags.logLevel != "" || verbose
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	sitePath := cfg.Server.SiteFile
	if len(args) > 0 {
		sitePath = args[0]
	}

	tel, err := telemetry.New(cfg.Telemetry, Version)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	logger := tel.Logger()

	siteCfg, siteErr := site.LoadOrDefault(sitePath)
	if siteErr != nil {
		if runFlags.dryRun {
			return cli.NewConfigError(sitePath, siteErr)
		}
		logger.Warn("site file unusable, serving built-in default", "path", sitePath, "error", siteErr)
	}

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid (%d servers, %d listeners)\n",
			len(siteCfg.Servers), len(siteCfg.Listeners()))
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	collector := tel.Metrics()
	var (
		requestObservers []server.RequestObserver
		connObserver     server.ConnectionObserver
		cgiObserver      cgi.Observer
	)
	if collector != nil {
		requestObservers = append(requestObservers, collector)
		connObserver = collector
		cgiObserver = collector
	}

	var store accesslog.Storage
	if cfg.AccessLog.Enabled {
		store, err = storage.Open(cfg.AccessLog)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open access log: %w", err))
		}
		defer store.Close()

		recorder := accesslog.NewRecorder(store, accesslog.RecorderConfig{
			BufferSize:   cfg.AccessLog.BufferSize,
			WriteTimeout: cfg.AccessLog.WriteTimeout,
		})
		defer recorder.Close()
		requestObservers = append(requestObservers, recorder)

		if collector != nil {
			collector.RegisterGaugeFunc("access_log_dropped_records", "Access records dropped because the write queue was full",
				func() float64 { return float64(recorder.Dropped()) })
		}
		tel.Health().RegisterCheck("access_log", health.StorageReachable(store))

		if days := cfg.AccessLog.Retention.Days; days > 0 {
			scheduler := accesslog.NewScheduler(accesslog.NewPruner(store, days), cfg.AccessLog.Retention.Schedule)
			if err := scheduler.Start(ctx); err != nil {
				logger.Warn("failed to start access log retention", "error", err)
			} else {
				defer scheduler.Stop()
				logger.Debug("access log retention scheduled", "days", days, "next_run", scheduler.NextRun())
			}
		}
	}

	interpreters := cgi.NewInterpreterTable(cgi.DefaultInterpreters())
	if len(cfg.CGI.Interpreters) > 0 {
		interpreters = cgi.NewInterpreterTable(cfg.CGI.Interpreters)
	}
	executor := cgi.NewExecutor(cgi.Options{
		Timeout:        cfg.CGI.Timeout,
		MaxOutputBytes: cfg.CGI.MaxOutputBytes,
		Observer:       cgiObserver,
	})

	srv := server.NewServer(siteCfg, handler.New(executor, interpreters), server.Options{
		ReadChunkSize:      cfg.Server.ReadChunkSize,
		ListenBacklog:      cfg.Server.ListenBacklog,
		MaxHeaderBytes:     cfg.Server.MaxHeaderBytes,
		WriteTimeout:       cfg.Server.WriteTimeout,
		RequestObservers:   requestObservers,
		ConnectionObserver: connObserver,
	})
	tel.Health().RegisterCheck("server", health.ServerRunning(srv))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	reload := newSiteReloader(sitePath, srv, collector, logger)
	if cfg.Watch.Enabled {
		w, err := sitewatch.New(sitePath, srv, sitewatch.Options{
			Debounce: cfg.Watch.Debounce,
			OnReload: reload.observe,
		})
		if err != nil {
			logger.Warn("site file watching disabled", "path", sitePath, "error", err)
		} else {
			reload.watcher = w
			g.Go(func() error { return w.Run(gctx) })
		}
	}
	g.Go(func() error {
		for range cli.Hangups(gctx) {
			logger.Info("SIGHUP received, reloading configuration", "config", cfgFile, "site", sitePath)
			reloadProcessConfig(logger, levelPinned)
			reload.reload()
		}
		return nil
	})

	if cfg.Admin.Enabled {
		opts := admin.Options{
			Health:    tel.Health(),
			AccessLog: store,
			Version:   buildInfo().VersionInfo,
		}
		if collector != nil {
			opts.Metrics = collector.Handler()
			opts.MetricsPath = cfg.Telemetry.Metrics.Path
		}
		adminSrv := admin.New(cfg.Admin, opts)
		g.Go(func() error { return adminSrv.Start(gctx) })
	}

	select {
	case <-srv.Ready():
		for _, addr := range srv.BoundAddrs() {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s\n", addr)
		}
	case <-gctx.Done():
	}

	<-gctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// reloadProcessConfig re-reads webserv.yaml. Only the log level applies to a
// running server; everything else takes effect on restart.
func reloadProcessConfig(logger *slog.Logger, levelPinned bool) {
	prev, next, err := config.Reload()
	if err != nil {
		logger.Warn("config reload failed, keeping current settings", "error", err)
		return
	}
	if levelPinned || prev == nil || prev.Telemetry.Logging.Level == next.Telemetry.Logging.Level {
		return
	}
	if err := logging.SetLevel(next.Telemetry.Logging.Level); err != nil {
		logger.Warn("ignoring reloaded log level", "level", next.Telemetry.Logging.Level, "error", err)
		return
	}
	logger.Info("log level changed", "from", prev.Telemetry.Logging.Level, "to", next.Telemetry.Logging.Level)
}

// siteReloader reloads the site file on SIGHUP, through the watcher when
// one is running so both paths share its logging and metrics.
type siteReloader struct {
	path      string
	target    sitewatch.Target
	collector *metrics.Collector
	logger    *slog.Logger
	watcher   *sitewatch.Watcher
}

func newSiteReloader(path string, target sitewatch.Target, collector *metrics.Collector, logger *slog.Logger) *siteReloader {
	return &siteReloader{path: path, target: target, collector: collector, logger: logger}
}

func (r *siteReloader) reload() {
	if r.watcher != nil {
		r.watcher.Reload()
		return
	}
	cfg, err := site.Load(r.path)
	if err != nil {
		r.logger.Warn("site reload failed, keeping current configuration", "path", r.path, "error", err)
	} else {
		r.target.SetSite(cfg)
		r.logger.Info("site reloaded", "path", r.path, "servers", len(cfg.Servers))
	}
	r.observe(err)
}

func (r *siteReloader) observe(err error) {
	if r.collector != nil {
		r.collector.RecordReload(err)
	}
}
