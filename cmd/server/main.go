package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/adapter/auth"
	"github.com/rl1809/logitrack/internal/adapter/handler"
	"github.com/rl1809/logitrack/internal/config"
	"github.com/rl1809/logitrack/internal/core/service"
	"github.com/rl1809/logitrack/internal/observability"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, config.ServiceName)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
	})
	if err != nil {
		return err
	}

	// Initialize store
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}

	// Initialize cache
	layer, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		store.Close()
		return err
	}

	publisher, err := openPublisher(cfg.Kafka, logger)
	if err != nil {
		layer.Close(ctx)
		store.Close()
		return err
	}

	deps := service.Dependencies{
		Store:    store,
		Cache:    layer,
		Events:   publisher,
		Logger:   logger,
		ListTTL:  cfg.Cache.ListTTL,
		EntryTTL: cfg.Cache.EntryTTL,
	}
	inventoryService := service.NewInventoryService(deps)
	orderService := service.NewOrderService(deps)

	if n, err := inventoryService.Seed(ctx, seedInputs(cfg.Seed)); err != nil {
		logger.Warn("seeding inventory failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("seeded inventory", zap.Int("items", n))
	}

	authenticator := auth.NewStaticAuthenticator(credentials(cfg.Auth))

	// Initialize gRPC server
	grpcServer, healthServer := handler.NewGRPCServer(
		handler.NewGRPCHandler(inventoryService, orderService, authenticator, logger),
	)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(inventoryService, orderService, authenticator, layer, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: httpHandler.Routes(),
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	if err := publisher.Close(); err != nil {
		logger.Warn("closing publisher", zap.Error(err))
	}
	if err := layer.Close(shutdownCtx); err != nil {
		logger.Warn("closing cache", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Warn("closing store", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("flushing traces", zap.Error(err))
	}
	logger.Info("connections closed")
	return serveErr
}
