package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/config"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/handlers/event"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/handlers/rtp/solve"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/handlers/seed"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/handlers/verify"
	mwLogger "github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/middleware/logger"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/job"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/metrics"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/repository"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/rtp"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/storage/badgerstore"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/storage/mysql"
)

func main() {
	cfg := config.MustLoad()

	log := logger.Setup(cfg.Env)

	log.Info("Starting server...", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.Default()

	publisher, closePublisher := newPublisher(cfg.Events, log)
	defer closePublisher()

	pool := job.NewWorkerPool(cfg.Events.Workers, cfg.Events.QueueSize, log)
	pool.Start(ctx)
	defer pool.Stop()

	ledger := provably_fair.NewLedger(store, log,
		provably_fair.WithMetrics(m),
		provably_fair.WithPublisher(event.NewAsync(publisher, pool, 0)),
		provably_fair.WithFatalHandler(func(err error) {
			log.Error("Fairness guarantee cannot hold, stopping", sl.Err(err))
			os.Exit(1)
		}),
	)

	solver := rtp.NewSolver(cfg.RTP.SolverConfig())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	seed.NewSeed(log, ledger).Routes(router)
	router.Post("/verify", verify.NewVerifier(log, m).New())
	router.Post("/rtp/solve", solve.NewAllocation(log, solver, cfg.RTP.CacheTTL, m).New())
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop server", sl.Err(err))
		}
	}()

	log.Info("Server started", slog.String("address", cfg.HTTPServer.Address))

	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server failed", sl.Err(err))
	}

	log.Info("Server stopped")
}

func openStore(ctx context.Context, cfg config.Storage) (provably_fair.Store, func(), error) {
	switch cfg.Driver {
	case config.StorageMySQL:
		db, err := mysql.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}

		return repository.NewSeedPairRepository(db), func() { _ = db.Close() }, nil
	default:
		store, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	}
}

func newPublisher(cfg config.Events, log *slog.Logger) (event.Publisher, func()) {
	switch cfg.Driver {
	case config.EventsPusher:
		client := event.NewPusherClient(cfg.Pusher.AppID, cfg.Pusher.Key, cfg.Pusher.Secret, cfg.Pusher.Cluster)

		return event.NewPusherEvent(log, client), func() {}
	case config.EventsWS:
		socket := event.NewSocketEvent(log, cfg.WSURL, cfg.WSSecret)

		return socket, closer(socket, log)
	default:
		return event.Noop{}, func() {}
	}
}

func closer(c io.Closer, log *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("Failed to close", sl.Err(err))
		}
	}
}
