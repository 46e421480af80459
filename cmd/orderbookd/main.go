// orderbookd replicates a per-product exchange order book from a
// websocket full-channel feed, recovering from drift via periodic REST
// snapshots.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/validate          — classify/format-check inbound events
//	internal/book              — ordered price→orders container
//	internal/engine            — per-product actor owning one Book
//	internal/snapshot          — REST rebuild collaborator
//	internal/formatter         — depth-limited view construction
//	internal/dispatcher        — routes events to per-product pipelines
//	internal/feed              — websocket subscription + auto-reconnect
//	internal/writer            — drains the L2 outbox to stdout or NATS
//	internal/metrics           — prometheus counters
//	internal/httpapi           — health/metrics/status HTTP surface
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"orderbookd/internal/book"
	"orderbookd/internal/config"
	"orderbookd/internal/dispatcher"
	"orderbookd/internal/engine"
	"orderbookd/internal/feed"
	"orderbookd/internal/formatter"
	"orderbookd/internal/httpapi"
	"orderbookd/internal/metrics"
	"orderbookd/internal/snapshot"
	"orderbookd/internal/writer"
	"orderbookd/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("OBD_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(reg)
	}

	rl := snapshot.NewRateLimiter(10, 2)
	loader := snapshot.New(cfg.HTTP, rl, logger)
	fmtr := formatter.New(cfg.NumOutputLevels, logger)

	outbox := make(chan types.L2View, 256)

	pipelines := make(map[string]*dispatcher.Pipeline, len(cfg.Products.SubscribedProductIDs))
	engines := make(map[string]*engine.Engine, len(cfg.Products.SubscribedProductIDs))
	for _, productID := range cfg.Products.SubscribedProductIDs {
		p := dispatcher.NewPipeline(256)
		pipelines[productID] = p
		engines[productID] = engine.New(productID, p, loader, fmtr, outbox, cfg.ErrorThreshold, logger, m)
	}

	d := dispatcher.New(pipelines, logger.With("component", "dispatcher"))
	f := feed.New(cfg.WS.Endpoint, cfg.Products.SubscribedProductIDs, d, logger)

	sink, err := buildSink(cfg.Writer)
	if err != nil {
		logger.Error("failed to build writer sink", "error", err)
		os.Exit(1)
	}
	w := writer.New(outbox, sink, logger)

	httpServer := httpapi.New(cfg.Metrics.Port, reg, &statusProvider{engines: engines}, logger)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for productID, e := range engines {
		wg.Add(1)
		go func(productID string, e *engine.Engine) {
			defer wg.Done()
			if err := e.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("engine exited with error", "product_id", productID, "error", err)
			}
		}(productID, e)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := f.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed exited with error", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run()
	}()

	if cfg.Metrics.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error("httpapi server failed", "error", err)
			}
		}()
	}

	logger.Info("orderbookd started",
		"products", cfg.Products.SubscribedProductIDs,
		"num_output_levels", cfg.NumOutputLevels,
		"error_threshold", cfg.ErrorThreshold,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	f.Close()
	for _, p := range pipelines {
		p.Close()
	}
	close(outbox)

	if cfg.Metrics.Enabled {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("httpapi shutdown failed", "error", err)
		}
	}

	wg.Wait()
}

func buildSink(cfg config.WriterConfig) (writer.Sink, error) {
	switch cfg.Kind {
	case "nats":
		return writer.NewNATSSink(cfg.NATSURL, cfg.NATSPrefix)
	default:
		return writer.NewStdoutSink(os.Stdout), nil
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// statusProvider adapts the live engine map to httpapi.StatusProvider.
type statusProvider struct {
	engines map[string]*engine.Engine
}

func (s *statusProvider) BookStatuses() map[string]book.Status {
	out := make(map[string]book.Status, len(s.engines))
	for productID, e := range s.engines {
		out[productID] = e.Book().Snapshot()
	}
	return out
}
