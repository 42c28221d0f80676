// Package main initializes and starts the RCC dashboard HTTP server,
// setting up configuration, logging, the key-value store, reference data,
// repositories, services and handlers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/rccdash/internal/catalog"
	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/config"
	"github.com/atinyakov/rccdash/internal/db"
	"github.com/atinyakov/rccdash/internal/kvstore"
	"github.com/atinyakov/rccdash/internal/logger"
	"github.com/atinyakov/rccdash/internal/repository"
	"github.com/atinyakov/rccdash/internal/server/handler/http"
	"github.com/atinyakov/rccdash/internal/service"
	"github.com/atinyakov/rccdash/internal/session"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmpOr(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmpOr(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(options)
	if err != nil {
		zapLogger.Fatal("cannot open store", zap.String("backend", options.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	// A failed load keeps the server up; every login reports the data banner.
	cat, err := catalog.Load(ctx, catalog.DirSource(options.DataDir))
	if err != nil {
		zapLogger.Error("failed to load reference data", zap.String("dir", options.DataDir), zap.Error(err))
		cat = catalog.Failed(err)
	} else {
		zapLogger.Info("reference data loaded",
			zap.Int("doctors", len(cat.Doctors())),
			zap.Int("patients", len(cat.Patients())),
			zap.Int("events", len(cat.Events())),
		)
	}

	clk := clock.Real{}

	// Load the persisted working copies.
	creds := repository.NewCredentialStore(ctx, store, zapLogger)
	attempts := repository.NewLoginAttemptLedger(ctx, store, clk, zapLogger)
	lastLogin := repository.NewLastLoginTable(ctx, store, zapLogger)
	meetings := repository.NewMeetingLog(ctx, store, clk, zapLogger)
	notifications := repository.NewNotificationLog(ctx, store, clk, zapLogger)

	banner := &http.Banner{}
	guard := session.NewGuard(clk, options.SessionTimeout, banner, zapLogger)

	// Initialize business-logic services.
	authService := service.NewAuthService(cat, creds, attempts, lastLogin, guard, repository.PlainVerifier{}, clk, zapLogger)
	meetingService := service.NewMeetingService(cat, meetings, notifications, zapLogger)
	dashboardService := service.NewDashboardService(cat, meetings, notifications, lastLogin, clk)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Banner: banner}
	dashHandler := &http.DashboardHandler{DashboardService: dashboardService, MeetingService: meetingService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, dashHandler, guard, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Port),
		zap.String("store", options.StoreBackend),
		zap.Duration("session_timeout", guard.Timeout()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	guard.End("")
}

// openStore opens the configured key-value backend.
func openStore(options *config.Options) (kvstore.Store, func(), error) {
	switch options.StoreBackend {
	case config.StorePostgres:
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewPostgresStore(postgresDB), func() { _ = postgresDB.Close() }, nil
	case config.StoreMemory:
		return kvstore.NewMemoryStore(), func() {}, nil
	default:
		fs, err := kvstore.OpenFileStore(options.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
