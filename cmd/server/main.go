package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/provider"
	"github.com/dgnsrekt/gexlevels/internal/server"
	"github.com/dgnsrekt/gexlevels/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Setup logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("providerMode", cfg.Provider.Mode),
		zap.Strings("symbols", cfg.Symbols),
		zap.Bool("wsEnabled", cfg.Server.WSEnabled),
		zap.Duration("wsStreamInterval", cfg.Server.StreamInterval()),
	)

	// Build provider
	chains, err := provider.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to create provider", zap.Error(err))
		return 1
	}
	defer chains.Close()

	// Build engine
	eng := engine.New(cfg.Engine, chains, logger)
	srv := server.NewServer(eng, cfg.Symbols, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket components (optional)
	var hub *ws.Hub
	if cfg.Server.WSEnabled {
		hub, err = ws.NewHub(logger)
		if err != nil {
			logger.Error("failed to create hub", zap.Error(err))
			return 1
		}
		go hub.Run(ctx)

		streamer := ws.NewStreamer(hub, eng, cfg.Server.StreamInterval(), logger)
		go streamer.Run(ctx)

		logger.Info("WebSocket enabled",
			zap.Duration("streamInterval", cfg.Server.StreamInterval()),
		)
	}

	// Create router
	router := server.NewRouter(srv, hub, logger)

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context to stop WebSocket components
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
