package main

import (
	"fmt"
	"net"

	"mt5-bridge/src/config"
	"mt5-bridge/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers starts the HTTP surface and, when a port is configured, the
// gRPC health endpoint. The returned gRPC server is nil when disabled.
func startServers(app *application, cfg *config.Config, appLogger *logger.Logger) *grpc.Server {
	// 1. REST + WebSocket + metrics
	go func() {
		if err := app.exchanger.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC health
	if cfg.GrpcPort == 0 {
		appLogger.Info("gRPC health endpoint disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error("Failed to listen for gRPC on %s: %v", addr, err)
		return nil
	}

	grpcServer := grpc.NewServer()
	app.health.Register(grpcServer)

	go func() {
		appLogger.Info("Starting gRPC health server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer
}
