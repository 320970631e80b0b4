package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/withObsrvr/obsrvr-datajoin/internal/config"
	"github.com/withObsrvr/obsrvr-datajoin/internal/logging"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal", "signal", sig)
		cancel()
	}()

	ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())

	a := newApp(cfg, os.Stdout)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address, a.promReg); err != nil {
				a.log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		a.log.Warn("close store", "error", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
