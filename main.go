package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"clanker/pkg/config"
	"clanker/pkg/gateway"
	"clanker/pkg/monitor"
)

const configPath = "config.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial load just to pick the log level before the run loop.
	if cfg, err := config.Load(configPath); err == nil {
		monitor.SetupSlog(cfg.Logging.Level)
	} else {
		monitor.SetupSlog("info")
	}

	reloadCh := config.Watch(ctx, configPath)

	for {
		err := runServer(ctx, reloadCh)
		if err != nil {
			slog.Error("Server failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-reloadCh:
				slog.Info("Configuration change detected while waiting. Retrying immediately...")
			case <-time.After(5 * time.Second):
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("Bye!")
			return
		default:
			slog.Info("==== Configuration Reloaded ====")
		}
	}
}

// runServer executes a single server lifecycle: it ends on shutdown signal
// or on a configuration change, whichever comes first.
func runServer(ctx context.Context, reloadCh <-chan struct{}) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	monitor.SetupSlog(cfg.Logging.Level)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := gateway.NewServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(runCtx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal. Stopping services...")
		cancel()
		return <-errCh
	case <-reloadCh:
		slog.Info("Configuration changes detected, stopping services...")
		cancel()
		if err := <-errCh; err != nil {
			slog.Error("Server stopped with error during reload", "error", err)
		}
		slog.Info("Draining connections before restart...")
		time.Sleep(1 * time.Second)
		return nil
	case err := <-errCh:
		return err
	}
}
