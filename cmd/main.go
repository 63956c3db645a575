package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/realtime-ai/streamview/pkg/audio"
	"github.com/realtime-ai/streamview/pkg/capture"
	"github.com/realtime-ai/streamview/pkg/config"
	"github.com/realtime-ai/streamview/pkg/events"
	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/playback"
	"github.com/realtime-ai/streamview/pkg/presentation"
	"github.com/realtime-ai/streamview/pkg/scheduler"
	"github.com/realtime-ai/streamview/pkg/server"
	"github.com/realtime-ai/streamview/pkg/trace"
	"github.com/realtime-ai/streamview/pkg/vad"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal("failed to load config", "error", err)
	}

	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := trace.Initialize(ctx, cfg.TraceConfig()); err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	bus := events.NewEventBus()
	if err := bus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", "error", err)
	}
	defer bus.Stop()

	loop := scheduler.NewLoop()
	hub := server.NewHub(log)
	defer hub.Close()

	sink := playback.NewDeviceSink(cfg.SinkConfig(), log)
	defer sink.Close()
	// The unlock must be registered before the policy arms its binding so a
	// gesture lifts the gate before the retried Play.
	cancelUnlock := sink.UnlockOn(hub)
	defer cancelUnlock()

	policy := playback.NewPolicy(hub, playback.PolicyConfig{
		PlayTimeout: cfg.Playback.PlayTimeout,
		Dispatch:    loop.Post,
	}, log)

	analysers := &audio.AnalyserFactory{Config: cfg.AnalyserConfig(), Log: log}
	monitor := vad.NewMonitor(cfg.MonitorConfig(), analysers, scheduler.New(), log)

	ctrl := presentation.NewController(presentation.Config{
		Remote:      cfg.Endpoint.Remote,
		Constraints: cfg.CaptureConstraints(),
	}, presentation.Deps{
		Capture:  capture.NewManager(capture.NewDeviceCapturer(log), log),
		Playback: policy,
		Monitor:  monitor,
		Sink:     sink,
		Loop:     loop,
		Bus:      bus,
		Log:      log,
	})
	hub.Bind(ctrl)

	go func() {
		if err := hub.Run(ctx, bus); err != nil && ctx.Err() == nil {
			log.Error("hub stopped", "error", err)
		}
	}()

	srv := server.New(server.Config{Addr: cfg.Server.Addr}, hub, log)
	if err := srv.Start(ctx); err != nil {
		log.Fatal("failed to start server", "error", err)
	}

	log.Info("streamview started", "addr", cfg.Server.Addr, "remote", cfg.Endpoint.Remote)
	// Local endpoints start acquiring; remote ones wait in idle for a stream.
	ctrl.Attach(nil)

	<-ctx.Done()
	log.Info("shutting down")

	ctrl.Dispose()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("server shutdown failed", "error", err)
	}
}
