/*
Package main is the entry point for the collaboration session server.

It is responsible for loading configuration, initializing the global logging system,
wiring the room registry, presence tracker, execution coordinator, and session gateway
together, setting up the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coderoom/internal/app/execution"
	"coderoom/internal/app/presence"
	"coderoom/internal/app/room"
	"coderoom/internal/app/session"
	"coderoom/internal/configs"
	"coderoom/internal/handler"
	"coderoom/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("exec_api_url", cfg.ExecAPIURL).
		Str("default_language", cfg.DefaultLanguage).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire the core: registry and tracker feed the gateway, the coordinator
	// publishes execution outcomes back through it.
	registry := room.NewRegistry(cfg.DefaultLanguage)
	cursors := presence.NewTracker()
	gateway := session.NewGateway(registry, cursors)
	runner := execution.NewPistonRunner(cfg.ExecAPIURL)
	coordinator := execution.NewCoordinator(registry, runner, gateway)
	gateway.AttachCoordinator(coordinator)
	gateway.Start()

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Gateway:     gateway,
		Registry:    registry,
		Coordinator: coordinator,
		Config:      cfg,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Collaboration server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	gateway.Shutdown()

	logx.Info("Server gracefully stopped.")
}
