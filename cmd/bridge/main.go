package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mt5-bridge/src/config"
	"mt5-bridge/src/logger"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := setup(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Critical("Setup failed: %v", err)
	}

	// Background pipelines: ingestor and gateway exit on ctx / queue close
	pipelines := &sync.WaitGroup{}
	if err := app.ingestor.Start(ctx, app.ticks, pipelines); err != nil {
		appLogger.Critical("Failed to start ingestor: %v", err)
	}
	app.gateway.Start(ctx, app.commands, app.replies, pipelines)
	go app.watchdog.Run(ctx, time.Duration(cfg.Market.CheckIntervalSeconds)*time.Second)

	grpcServer := startServers(app, cfg, appLogger)

	presenterDone := make(chan struct{})
	go func() {
		defer close(presenterDone)
		app.presenter.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Bridge running (sub %s, req %s)", cfg.Transport.SubEndpoint, cfg.Transport.ReqEndpoint)
	<-quit
	appLogger.Info("Shutting down...")

	cancel()
	<-presenterDone

	// the presenter was the only producer of commands
	close(app.commands)
	pipelines.Wait()

	if err := app.state.Close(); err != nil {
		appLogger.Warning("Closing recording: %v", err)
	}
	if err := app.exchanger.Stop(); err != nil {
		appLogger.Warning("Stopping HTTP server: %v", err)
	}
	app.health.Shutdown()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	appLogger.Info("Bye")
}
