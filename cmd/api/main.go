package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/viscan/viscan-backend/internal/anpr"
	"github.com/viscan/viscan-backend/internal/config"
	"github.com/viscan/viscan-backend/internal/evidence"
	"github.com/viscan/viscan-backend/internal/handler"
	"github.com/viscan/viscan-backend/internal/logging"
	"github.com/viscan/viscan-backend/internal/middleware"
	"github.com/viscan/viscan-backend/internal/repository"
	"github.com/viscan/viscan-backend/internal/service"
	"github.com/viscan/viscan-backend/internal/service/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("viscan-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv, err := buildServer(cfg, db)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func buildServer(cfg *config.Config, db *sql.DB) (*http.Server, error) {
	userRepo := repository.NewUserRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	violationRepo := repository.NewViolationRepository(db)
	entryRepo := repository.NewWalletEntryRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	evidenceStore, err := evidence.NewFSStore(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("buildServer: evidence store: %w", err)
	}

	anprTimeout := time.Duration(cfg.ANPRTimeoutS) * time.Second
	detector := anpr.NewDetectorClient(cfg.DetectorURL, anprTimeout)
	recognizer := anpr.NewOCRClient(cfg.OCRURL, anprTimeout)

	vehicleSvc := service.NewVehicleService(vehicleRepo)
	userSvc := service.NewUserService(userRepo, walletRepo, vehicleSvc)
	dashboardSvc := service.NewDashboardService(userRepo, vehicleRepo, violationRepo, walletRepo)
	settlementSvc := settlement.NewService(
		vehicleRepo,
		walletRepo,
		violationRepo,
		entryRepo,
		submissionRepo,
		detector,
		recognizer,
		evidenceStore,
		db,
		settlement.Config{
			FeeMinor:     cfg.ViolationFeeMinor,
			DedupeWindow: time.Duration(cfg.DedupeWindowS) * time.Second,
			MaxAttempts:  cfg.SettleMaxAttempts,
			Backoff:      time.Duration(cfg.SettleBackoffMs) * time.Millisecond,
		},
	)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userSvc.EnsureStaff(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("buildServer: seed staff: %w", err)
		}
	}

	tokenExpiry := time.Duration(cfg.TokenExpiryM) * time.Minute
	authHandler := handler.NewAuthHandler(userSvc, cfg.JWTSecret, tokenExpiry)
	vehicleHandler := handler.NewVehicleHandler(vehicleSvc)
	walletHandler := handler.NewWalletHandler(settlementSvc)
	detectionHandler := handler.NewDetectionHandler(settlementSvc)
	violationHandler := handler.NewViolationHandler(settlementSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	healthHandler := handler.NewHealthHandler(db)

	authed := middleware.Auth(cfg.JWTSecret)
	staff := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.Staff(h))
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Check)

	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	mux.Handle("GET /wallet", user(walletHandler.Get))
	mux.Handle("POST /wallet/deposit", user(walletHandler.Deposit))
	mux.Handle("GET /wallet/entries", user(walletHandler.Entries))

	mux.Handle("POST /vehicles", user(vehicleHandler.Register))
	mux.Handle("GET /vehicles", user(vehicleHandler.List))

	mux.Handle("GET /violations/{id}", user(violationHandler.Get))
	mux.Handle("POST /violations/{id}/pay", user(violationHandler.Pay))

	mux.Handle("GET /dashboard", user(dashboardHandler.User))

	mux.Handle("POST /detect", staff(detectionHandler.Detect))
	mux.Handle("GET /admin/dashboard", staff(dashboardHandler.Admin))
	mux.Handle("POST /admin/vehicles", staff(vehicleHandler.AdminRegister))
	mux.Handle("PATCH /admin/vehicles/{id}", staff(vehicleHandler.Update))
	mux.Handle("DELETE /admin/vehicles/{id}", staff(vehicleHandler.Delete))

	// Evidence images are served read-only for review.
	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           chain,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var db *sql.DB
	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
