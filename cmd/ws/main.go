package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/config"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/ws/handler"
)

func main() {
	cfg := config.MustLoad()

	log := logger.Setup(cfg.Env)

	log.Info("Starting ws server...", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Events.WSSecret == "" {
		log.Warn("events.ws_secret is empty, publishing is disabled")
	}

	hub := handler.NewHub(log, cfg.Events.WSSecret)

	hub.RunServer(ctx)

	srv := &http.Server{
		Addr:         cfg.WSServer.Address,
		Handler:      hub.Routes(),
		ReadTimeout:  cfg.WSServer.Timeout,
		WriteTimeout: cfg.WSServer.Timeout,
		IdleTimeout:  cfg.WSServer.IdleTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop ws server", sl.Err(err))
		}
	}()

	log.Info("Server started", slog.String("address", cfg.WSServer.Address))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", sl.Err(err))
	}

	log.Info("WS server stopped")
}
