package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"nwuledger/internal/api"
	"nwuledger/internal/events"
	"nwuledger/internal/logger"
	"nwuledger/internal/metrics"
	"nwuledger/internal/protocol"
	"nwuledger/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config:\n%w", err)
	}

	logger.Init(cfg.LogLevel)

	store, err := storage.Open(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()

	coordinator, err := protocol.Open(store, protocol.Config{
		Admin:                cfg.Admin,
		Treasury:             cfg.Treasury,
		MaxCertificateSupply: cfg.MaxCertificateSupply,
	}, metrics.New(registry))
	if err != nil {
		return fmt.Errorf("open ledger:\n%w", err)
	}

	stopEvents := logEvents(coordinator.Events())
	defer stopEvents()

	server := api.New(cfg.HTTPAddress, coordinator, registry)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start http server:\n%w", err)
	}

	logger.Info("ledgerd started",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"treasury", cfg.Treasury,
	)

	waitForShutdown()

	logger.Info("shutting down")

	return server.Stop()
}

// logEvents mirrors lifecycle events into the log until the returned
// cancel func is called.
func logEvents(emitter *events.Emitter) func() {
	ch, cancel := emitter.Subscribe(256)

	go func() {
		for event := range ch {
			logger.Debug("event",
				"type", string(event.Type),
				"seq", event.Seq,
				"id", event.ID,
			)
		}
	}()

	return cancel
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
