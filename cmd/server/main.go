// Command server runs the fast-kv line-protocol server.
//
// It takes no flags. See internal/config for the FASTKV_* environment
// variables and the optional YAML file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/VoolFI71/fast-kv/internal/config"
	"github.com/VoolFI71/fast-kv/internal/handler"
	"github.com/VoolFI71/fast-kv/internal/logging"
	"github.com/VoolFI71/fast-kv/internal/metrics"
	"github.com/VoolFI71/fast-kv/internal/server"
	"github.com/VoolFI71/fast-kv/internal/stats"
	"github.com/VoolFI71/fast-kv/internal/storage"
	"github.com/VoolFI71/fast-kv/internal/workerpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type hook func(context.Context) error

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, sink, err := logging.New(logging.Config{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		Stderr:     cfg.Log.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer sink.Close()
	defer log.Sync()

	log.Info("starting fast-kv", zap.String("addr", cfg.Listen.Addr))

	st := stats.New()
	pool, err := workerpool.New(workerpool.Config{
		Workers: cfg.Pool.Workers,
		Ordered: cfg.Pool.Ordered,
	}, log.Named("pool"))
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}

	srv := server.New(server.Config{
		Addr:      cfg.Listen.Addr,
		ReuseAddr: cfg.Listen.ReuseAddr,
	}, handler.New(storage.New(), st), pool, st, log)

	// Run in reverse order of registration.
	var hooks []hook
	hooks = append(hooks, func(context.Context) error {
		log.Info("stopping worker pool")
		return pool.Close(cfg.Shutdown.Timeout)
	})

	if cfg.Metrics.Addr != "" {
		ms, err := metrics.Start(cfg.Metrics.Addr, metrics.NewHandler(metrics.NewRegistry(st, pool)), log)
		if err != nil {
			log.Error("startup failed", zap.String("component", "metrics"), zap.Error(err))
			_ = pool.Close(cfg.Shutdown.Timeout)
			return fmt.Errorf("metrics listen: %w", err)
		}
		hooks = append(hooks, func(ctx context.Context) error {
			log.Info("stopping metrics server")
			return ms.Shutdown(ctx)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		log.Info("signal received, shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		if err := srv.Stop(stopCtx); err != nil {
			log.Warn("engine stop", zap.Error(err))
		}
		cancel()
		err = <-serveErr
	}

	shutdown(hooks, cfg.Shutdown.Timeout, log)

	switch {
	case err == nil:
		log.Info("server stopped")
		return nil
	case errors.Is(err, server.ErrStartup):
		log.Error("startup failed", zap.Error(err))
		return err
	default:
		// The loop ran and then failed; sockets are already closed.
		log.Error("event loop failed", zap.Error(err))
		return nil
	}
}

func shutdown(hooks []hook, timeout time.Duration, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			log.Warn("shutdown hook failed", zap.Error(err))
		}
	}
}
