package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"walk-with-mung/internal/adapters/storage/memory"
	"walk-with-mung/internal/adapters/storage/postgres"
	"walk-with-mung/internal/adapters/storage/sqlite"
	"walk-with-mung/internal/config"
	"walk-with-mung/internal/domain/walks"
	"walk-with-mung/internal/platform/logger"
	"walk-with-mung/internal/platform/metrics"
	"walk-with-mung/internal/router"
	"walk-with-mung/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage init failed", zap.Error(err))
	}

	m := metrics.New()
	svc := walks.NewService(store, log, m)
	rec := walks.NewReconciler(store, svc, log, m, cfg.ReconcileInterval)

	go rec.Run(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Options{
			Service:    svc,
			Logger:     log,
			CORSOrigin: cfg.CORSOrigin,
			Metrics:    true,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}

// openStore elige el Record Store: Postgres si hay DB_DSN, sqlite si hay
// SQLITE_PATH, e in-memory con seed como último recurso (modo dev).
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (walks.Store, error) {
	if cfg.DBDSN != "" {
		db, err := postgres.Open(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		log.Info("using postgres storage")
		return postgres.NewWalksRepo(db), nil
	}

	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		return sqlite.NewWalksRepo(db), nil
	}

	repo := memory.NewWalksRepo()
	repo.SeedDogs(seed.Dogs())
	log.Info("using in-memory storage with seed data")
	return repo, nil
}
