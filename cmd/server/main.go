package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orienta/orienta/internal/api"
	"github.com/orienta/orienta/internal/backup"
	"github.com/orienta/orienta/internal/config"
	"github.com/orienta/orienta/internal/db"
	"github.com/orienta/orienta/internal/logging"
	"github.com/orienta/orienta/internal/middleware"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "orienta-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Env, cfg.Log.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := ImportSnapshot(store, cfg.Database.ImportSnapshot, logger); err != nil {
		return err
	}
	seeded, err := api.Seed(store)
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("default questionnaire and catalog seeded")
	}

	manager, err := backup.NewManager(cfg.Backup.Dir, store, logger.Named("backup"))
	if err != nil {
		return err
	}
	opts := api.Options{
		Store:       store,
		Auth:        middleware.NewAuthenticator(cfg.JWT.Secret),
		Backups:     manager,
		Logger:      logger,
		Version:     api.VersionInfo{Commit: cfg.Server.Commit, BuildTime: cfg.Server.BuildTime},
		TokenTTL:    cfg.JWT.TTL,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if cfg.Google.ClientID != "" {
		verifier, err := services.NewTokenInfoVerifier(cfg.Google.ClientID, cfg.Google.TokenInfoURL)
		if err != nil {
			return fmt.Errorf("google verifier: %w", err)
		}
		opts.Google = verifier
	}
	rt := api.NewRouter(opts)

	if cfg.Admin.Email != "" {
		u, created, err := rt.AuthService().EnsureAdmin(cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			logger.Info("admin account created", zap.String("email", u.Email))
		}
	}

	backups := rt.BackupService()
	scheduler := backup.NewScheduler(backups, backups.Config, logger.Named("scheduler"))
	backups.OnConfigChange(func(models.BackupConfig) { scheduler.Reload() })

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("orienta server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("driver", cfg.Database.Driver),
			zap.String("backup_dir", manager.Dir()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (api.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using the in-memory store; data is lost on restart")
		return api.NewMemoryStore(), func() {}, nil
	}
	if cfg.Database.Driver == db.DriverSQLite {
		if err := db.EnsureSQLiteDir(cfg.Database.DSN); err != nil {
			return nil, nil, err
		}
	}
	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}
	if err := db.RunMigrations(ctx, conn, cfg.Database.MigrationsDir, logger); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	st, err := db.NewSQLStore(conn, cfg.Database.Driver, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return st, closeFn, nil
}
