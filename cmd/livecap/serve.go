package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/livecap/livecap/internal/config"
	"github.com/livecap/livecap/internal/engine"
	"github.com/livecap/livecap/internal/history"
	"github.com/livecap/livecap/internal/history/factory"
	"github.com/livecap/livecap/internal/logger"
	"github.com/livecap/livecap/internal/metrics"
	"github.com/livecap/livecap/internal/platform"
	"github.com/livecap/livecap/internal/registry"
	"github.com/livecap/livecap/internal/server"
	"github.com/livecap/livecap/internal/store"
)

func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recording daemon",
		Long: `Start the livecap daemon: serve the HTTP API, poll recording plans,
and supervise running captures.

Examples:
  livecap serve
  livecap serve --config=/etc/livecap/livecap.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags.ConfigPath)
		},
	}
}

func runServe(configPath string) error {
	fc, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Setup(os.Stdout, logger.ParseLevel(fc.Log.Level), fc.Log.Color)

	env, err := fc.GlobalEnv()
	if err != nil {
		return err
	}
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			_ = os.Setenv(kv[:i], kv[i+1:])
		}
	}

	if err := os.MkdirAll(fc.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(filepath.Join(fc.DataDir, "livecap.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another livecap instance already owns %s", fc.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(fc.StorePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	if err := st.SeedConfig(ctx, fc.AppConfig()); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}

	sinks, closeSinks, err := openSinks(fc.SinkDSNs())
	if err != nil {
		return err
	}
	defer closeSinks()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Warn("register metrics", "error", err)
	}

	resolvers := platform.DefaultSet()
	eng := engine.New(st, registry.New(), engine.NewFFmpegLauncher(), resolvers)
	eng.SetCaptureLog(fc.CaptureLogConfig())
	eng.SetHistorySinks(sinks...)

	if err := eng.Recover(ctx); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	eng.StartMonitor()
	eng.StartPoller()

	srv, err := server.NewServer(fc.Listen, "", eng, st, resolvers)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	slog.Info("livecap daemon started", "listen", fc.Listen, "data_dir", fc.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	eng.StopPoller()
	eng.StopMonitor()
	eng.StopAll(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	return nil
}

func openSinks(dsns []string) ([]history.Sink, func(), error) {
	var sinks []history.Sink
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	for _, dsn := range dsns {
		sink, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open history sink %s: %w", dsn, err)
		}
		sinks = append(sinks, sink)
		if c, ok := sink.(interface{ Close() error }); ok {
			closers = append(closers, c.Close)
		}
	}
	return sinks, closeAll, nil
}
