package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "kol-market/internal/adapter/http"
	"kol-market/internal/adapter/memory"
	"kol-market/internal/adapter/postgres"
	"kol-market/internal/adapter/rabbitmq"
	"kol-market/internal/adapter/usecase"
	"kol-market/internal/config"
	"kol-market/internal/config/configs"
	"kol-market/internal/core/port"
	"kol-market/internal/core/settlement"
	"kol-market/internal/db"
)

// main loads configuration, builds the ledger backend and event producer,
// bootstraps the registry when configured and serves the HTTP API until a
// termination signal arrives.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// .env is for local runs; deployments set the environment directly
	envFileErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return
	}

	logger, logCloser := cfg.Log.NewSlog()
	defer logCloser.Close()
	logger = logger.With(slog.String("env", cfg.Env))
	slog.SetDefault(logger)
	if envFileErr != nil {
		logger.Debug("no .env file loaded", slog.Any("error", envFileErr))
	}

	programID, err := cfg.Program.ProgramID()
	if err != nil {
		logger.Error("invalid program config", slog.Any("error", err))
		return
	}
	split, err := settlement.NewFeeSplit(cfg.Program.KolShareBps)
	if err != nil {
		logger.Error("invalid program config", slog.Any("error", err))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var ledger port.Ledger
	switch cfg.Program.LedgerBackend() {
	case configs.LedgerMemory:
		logger.Warn("using in-memory ledger; state is lost on exit")
		ledger = memory.NewLedger()
	default:
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				logger.Error("migration error", slog.Any("error", err))
				return
			}
			logger.Info("migrations applied successfully")
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			logger.Error("database connection error", slog.Any("error", err))
			return
		}
		defer pool.Close()
		ledger = postgres.NewLedger(pool)
	}

	var events port.EventPublisher = rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.AMQP.Enabled() {
		producer, err := rabbitmq.NewEventProducer(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("event broker unavailable; events will only be logged", slog.Any("error", err))
		} else {
			defer producer.Close()
			events = producer
		}
	}

	svc, err := usecase.NewMarketplaceUseCase(ledger, programID,
		usecase.WithLogger(logger),
		usecase.WithEventPublisher(events),
		usecase.WithFeeSplit(split),
	)
	if err != nil {
		logger.Error("marketplace setup error", slog.Any("error", err))
		return
	}

	if err = db.Seed(ctx, svc, cfg.Program, logger); err != nil {
		logger.Error("seed error", slog.Any("error", err))
		return
	}

	handler := httpadapter.NewHandler(svc, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)), slog.String("program", programID.String()))
	exitCode = serve(srv, quit, cfg.HTTP.ShutdownTimeout, logger)
}

// serve runs srv until it fails or a signal arrives on quit and returns the
// process exit code: 1 when serving or shutdown fails, 128+signal after a
// graceful stop.
func serve(srv *http.Server, quit <-chan os.Signal, shutdownTimeout time.Duration, logger *slog.Logger) int {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	var sig os.Signal
	select {
	case err := <-serveErr:
		logger.Error("server error", slog.Any("error", err))
		return 1
	case sig = <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return 1
	}
	logger.Info("server gracefully stopped", slog.String("signal", sig.String()))

	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
