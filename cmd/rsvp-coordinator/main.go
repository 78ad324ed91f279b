// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/config"
	"github.com/bureau-foundation/rsvp/lib/coordinator"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/service"
	"github.com/bureau-foundation/rsvp/lib/version"
	"github.com/bureau-foundation/rsvp/observe"
)

// intakeDurable names the coordinator's consumer on the intake topic.
// Every coordinator replica shares it, so each message is handled once.
const intakeDurable = "coordinator"

// shutdownTimeout bounds how long in-flight summaries may take to
// drain after a signal.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		demo        bool
		seed        uint64
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("rsvp-coordinator", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to rsvp.yaml (default: $RSVP_CONFIG, then built-in defaults)")
	flagSet.BoolVar(&demo, "demo", false, "with the memory broker, send one invitation at startup and print its summary")
	flagSet.Uint64Var(&seed, "seed", 0, "seed for simulated guest decisions (0 picks one at random)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("rsvp-coordinator")
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if demo && cfg.Broker.Driver != config.DriverMemory {
		return fmt.Errorf("--demo requires broker.driver %q (got %q)", config.DriverMemory, cfg.Broker.Driver)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	broker, err := cfg.OpenBroker(ctx, "rsvp-coordinator", clk, logger)
	if err != nil {
		return fmt.Errorf("opening broker: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Error("closing broker", "error", err)
		}
	}()

	directory, err := cfg.GuestDirectory()
	if err != nil {
		return fmt.Errorf("guest directory: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observe.NewMetrics(metricsRegistry)

	events := registry.New(cfg.Coordinator.RetiredCapacity)
	topics := cfg.TopicNames()

	engine, err := coordinator.New(coordinator.Config{
		Registry:                 events,
		Directory:                directory,
		Publisher:                broker,
		Clock:                    clk,
		Logger:                   logger,
		Metrics:                  metrics,
		Topics:                   topics,
		CollectionWindow:         cfg.Coordinator.CollectionWindow,
		CompleteWhenAllResponded: cfg.Coordinator.CompleteWhenAllResponded,
		SummaryRetry:             cfg.Coordinator.SummaryRetry,
	})
	if err != nil {
		return err
	}

	intake, err := broker.Subscribe(ctx, topics.Intake(), intakeDurable, engine.HandleMessage)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topics.Intake(), err)
	}

	// adminFailed and socketDone stay nil when their server is
	// disabled, so the select below never fires on them.
	var adminServer *http.Server
	var adminFailed chan error
	if cfg.Control.HTTPAddress != "" {
		adminServer = &http.Server{
			Addr: cfg.Control.HTTPAddress,
			Handler: observe.NewRouter(observe.RouterConfig{
				Gatherer: metricsRegistry,
				Events:   events,
				Health: func() error {
					if !broker.Connected() {
						return errors.New("broker disconnected")
					}
					return nil
				},
				Logger: logger,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		adminFailed = make(chan error, 1)
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				adminFailed <- err
			}
		}()
		logger.Info("admin http listening", "address", cfg.Control.HTTPAddress)
	}

	var socketDone chan error
	if cfg.Control.SocketPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Control.SocketPath), 0o750); err != nil {
			return fmt.Errorf("creating control socket directory: %w", err)
		}
		socketServer := service.NewSocketServer(cfg.Control.SocketPath, logger)
		if err := service.RegisterControl(socketServer, service.ControlConfig{
			Events:    events,
			Clock:     clk,
			Connected: broker.Connected,
		}); err != nil {
			return err
		}
		socketDone = make(chan error, 1)
		go func() {
			socketDone <- socketServer.Serve(ctx)
		}()
	}

	var guests *simulation
	if cfg.Broker.Driver == config.DriverMemory {
		guests, err = startSimulation(ctx, simulationConfig{
			Broker:    broker,
			Directory: directory,
			Topics:    topics,
			Clock:     clk,
			Logger:    logger,
			Seed:      seed,
			Demo:      demo,
			Output:    os.Stdout,
		})
		if err != nil {
			return err
		}
	}

	logger.Info("rsvp coordinator running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"broker", cfg.Broker.Driver,
		"intake", topics.Intake(),
		"collection_window", cfg.Coordinator.CollectionWindow,
		"complete_when_all_responded", cfg.Coordinator.CompleteWhenAllResponded,
	)

	select {
	case <-ctx.Done():
	case err := <-adminFailed:
		logger.Error("admin http server failed", "error", err)
	case err := <-socketDone:
		logger.Error("control socket stopped", "error", err)
		socketDone = nil
	}
	stop()
	logger.Info("shutting down")

	// Stop taking messages first so nothing new reaches the engine
	// while it drains.
	if err := intake.Stop(); err != nil {
		logger.Error("stopping intake subscription", "error", err)
	}
	if guests != nil {
		guests.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Error("coordinator shutdown incomplete", "error", err)
	}

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin http shutdown", "error", err)
		}
	}
	if socketDone != nil {
		if err := <-socketDone; err != nil {
			logger.Error("control socket error", "error", err)
		}
	}

	logger.Info("rsvp coordinator stopped", "events", events.Stats())
	return nil
}
