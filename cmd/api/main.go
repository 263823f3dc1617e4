package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "carbon-filing/docs" // This is for Swagger
	"carbon-filing/internal/auth"
	"carbon-filing/internal/config"
	"carbon-filing/internal/database"
	"carbon-filing/internal/handlers"
	"carbon-filing/internal/logger"
	"carbon-filing/internal/middleware"
	"carbon-filing/internal/repository"
	"carbon-filing/internal/scheduler"
	"carbon-filing/internal/service"
	"carbon-filing/internal/storage"
	"carbon-filing/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Carbon Filing API
// @version 1.0
// @description Backend API for energy and usage data entry with evidence files and admin review

// @contact.name API Support
// @contact.email support@carbonfiling.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize object storage
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.New(initCtx, &cfg.Storage)
	cancelInit()
	if err != nil {
		slog.Error("Failed to connect to object storage", "error", err)
		os.Exit(1)
	}
	slog.Info("Object storage ready", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)

	// Initialize review notes encryption (if Vault is enabled)
	var cipher service.NotesCipher
	if cfg.Vault.Enabled {
		vaultClient, err := vault.NewClient(&cfg.Vault)
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		cipher = vaultClient
		slog.Info("Review notes encryption enabled", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - review notes will be stored in plaintext")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	entryRepo := repository.NewEntryRepository(db.DB)
	fileRepo := repository.NewFileRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	entryService := service.NewEntryService(entryRepo, cipher)
	fileMapper := service.NewFileMapperService(fileRepo, store)
	ghostService := service.NewGhostService(fileRepo, store)
	clearService := service.NewClearService(entryRepo, fileRepo, store)
	submitService := service.NewSubmitService(entryService, fileMapper)

	// Initialize scheduler
	sweeper := scheduler.NewSweeper(fileRepo, store, &cfg.Sweeper)
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	entryHandler := handlers.NewEntryHandler(entryService, fileMapper, ghostService, submitService, clearService)
	fileHandler := handlers.NewFileHandler(fileMapper, store)
	reviewHandler := handlers.NewReviewHandler(entryService, sweeper)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Entry routes
	mux.Handle("GET /api/v1/entries",
		authMw.Authenticate(http.HandlerFunc(entryHandler.GetEntry)))
	mux.Handle("PUT /api/v1/entries",
		authMw.Authenticate(http.HandlerFunc(entryHandler.SaveEntry)))
	mux.Handle("POST /api/v1/entries/submit",
		authMw.Authenticate(http.HandlerFunc(entryHandler.SubmitEntry)))
	mux.Handle("DELETE /api/v1/entries/{id}",
		authMw.Authenticate(http.HandlerFunc(entryHandler.DeleteEntry)))
	mux.Handle("GET /api/v1/entries/{id}/files",
		authMw.Authenticate(http.HandlerFunc(entryHandler.GetEntryFiles)))
	mux.Handle("GET /api/v1/entries/{id}/permissions",
		authMw.Authenticate(http.HandlerFunc(entryHandler.GetPermissions)))

	// Evidence file routes
	mux.Handle("POST /api/v1/files",
		authMw.Authenticate(http.HandlerFunc(fileHandler.Upload)))
	mux.Handle("DELETE /api/v1/files/{id}",
		authMw.Authenticate(http.HandlerFunc(fileHandler.Delete)))
	mux.Handle("GET /api/v1/files/{id}/download",
		authMw.Authenticate(http.HandlerFunc(fileHandler.Download)))

	// Admin review routes
	mux.Handle("GET /api/v1/admin/reviews",
		authMw.Authenticate(
			authMw.RequireAdmin(
				http.HandlerFunc(reviewHandler.ListReviews),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/reviews/{id}/approve",
		authMw.Authenticate(
			authMw.RequireAdmin(
				http.HandlerFunc(reviewHandler.Approve),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/reviews/{id}/reject",
		authMw.Authenticate(
			authMw.RequireAdmin(
				http.HandlerFunc(reviewHandler.Reject),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/sweep",
		authMw.Authenticate(
			authMw.RequireAdmin(
				http.HandlerFunc(reviewHandler.TriggerSweep),
			),
		),
	)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		corsMw.Handler(mux),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
