package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pscheid92/biomarkerpulse/internal/analysis"
	"github.com/pscheid92/biomarkerpulse/internal/config"
	"github.com/pscheid92/biomarkerpulse/internal/logging"
)

func runGracefulShutdown(srv *analysis.ToolServer) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Analysis service shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Analysis service starting", "env", cfg.AppEnv, "port", cfg.MCPPort)

	srv := analysis.NewToolServer(analysis.RuleAnalyzer{})
	done := runGracefulShutdown(srv)

	for _, tool := range analysis.Tools {
		slog.Info("Tool available", "tool", tool.Name)
	}

	if err := srv.Start(net.JoinHostPort(cfg.Host, cfg.MCPPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Analysis service error", "error", err)
		os.Exit(1)
	}

	<-done
}
