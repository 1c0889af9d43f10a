// Command stream-health runs the stream health monitor daemon: it
// supervises the camera and screen capture sources, analyzes their frames
// for blackness, freezes, resolution changes, frame-rate drops and idle
// periods, and serves the control API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/orion-stream-health/internal/capture"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
	"github.com/e7canasta/orion-stream-health/internal/httpserver"
	"github.com/e7canasta/orion-stream-health/internal/monitor"
	"github.com/e7canasta/orion-stream-health/internal/observability"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream-health",
		Short: "Live video source health monitor",
		Long: `stream-health watches the camera and screen capture feeds, detects
black, frozen, low-fps and idle video, and reconnects failed sources
with exponential backoff.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	registerFlags(cmd)
	return cmd
}

func run(ctx context.Context, cfg *appConfig) error {
	setupLogging(cfg.LogLevel)

	slog.Info("stream-health: starting",
		"http_addr", cfg.HTTPAddr,
		"synthetic", cfg.Synthetic,
		"sources", cfg.StartSources,
	)

	sink := eventlog.New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	acquirer, err := buildAcquirer(cfg)
	if err != nil {
		return err
	}

	supervisor, err := monitor.NewSupervisor(acquirer, cfg.Settings, sink,
		monitor.WithObserver(metrics),
	)
	if err != nil {
		return err
	}

	api := httpserver.NewServer(cfg.HTTPAddr, supervisor, cfg.Settings, sink, registry)
	if err := api.Start(); err != nil {
		return fmt.Errorf("stream-health: start HTTP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, name := range cfg.StartSources {
		src := frame.Source(name)
		if !src.Valid() {
			return fmt.Errorf("stream-health: unknown source %q (want camera or screen)", name)
		}
		if err := supervisor.Start(ctx, src); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("stream-health: shutting down")
		supervisor.StopAll()
		return api.Stop()
	})

	return g.Wait()
}

func buildAcquirer(cfg *appConfig) (frame.Acquirer, error) {
	if cfg.Synthetic {
		return capture.NewSyntheticAcquirer(capture.SyntheticConfig{
			Width:  cfg.CaptureWidth,
			Height: cfg.CaptureHeight,
			FPS:    cfg.CaptureFPS,
		}), nil
	}
	return capture.NewAcquirer(capture.Config{
		Device:    cfg.CameraDevice,
		Display:   cfg.ScreenDisplay,
		Width:     cfg.CaptureWidth,
		Height:    cfg.CaptureHeight,
		TargetFPS: cfg.CaptureFPS,
	})
}

func setupLogging(level string) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}
