// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/olegiv/resourcehub/internal/auth"
	"github.com/olegiv/resourcehub/internal/cache"
	"github.com/olegiv/resourcehub/internal/config"
	"github.com/olegiv/resourcehub/internal/handler"
	"github.com/olegiv/resourcehub/internal/handler/api"
	"github.com/olegiv/resourcehub/internal/logging"
	"github.com/olegiv/resourcehub/internal/metrics"
	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/render"
	"github.com/olegiv/resourcehub/internal/scheduler"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/session"
	"github.com/olegiv/resourcehub/internal/storage"
	"github.com/olegiv/resourcehub/internal/store"
	"github.com/olegiv/resourcehub/internal/version"
	"github.com/olegiv/resourcehub/web"
)

func main() {
	showVersion := pflag.BoolP("version", "v", false, "Show version information")
	showHelp := pflag.BoolP("help", "h", false, "Show help information")
	var adminCmd adminCommand
	pflag.StringVar(&adminCmd.createEmail, "create-admin", "", "Create an administrator with this email and exit")
	pflag.StringVar(&adminCmd.name, "name", "", "Display name for --create-admin")
	pflag.StringVar(&adminCmd.promoteEmail, "promote-admin", "", "Grant the ADMIN role to an existing account and exit")

	pflag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ResourceHub - moderated study resource sharing\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_SESSION_SECRET    Session and token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_DB_PATH           SQLite database path (default: ./data/resourcehub.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_STORAGE           Upload backend: local|s3 (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RHUB_REDIS_URL         Redis URL for the listing cache (optional)\n")
	}

	pflag.Parse()

	if *showHelp {
		pflag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Println(version.Get().String())
		os.Exit(0)
	}

	if err := run(adminCmd); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(adminCmd adminCommand) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// WARN and ERROR records also go to the events table.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()

	m := (*metrics.Metrics)(nil)
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	events := service.NewEventService(db, logger)
	accounts := service.NewAccountService(db,
		service.WithAccountEvents(events),
		service.WithAccountMetrics(m),
		service.WithAccountLogger(logger),
	)

	if adminCmd.requested() {
		return adminCmd.run(ctx, accounts, os.Stdin, os.Stdout, readPassword)
	}

	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedAdmin{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Name:     cfg.AdminName,
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	resourceOpts := []service.ResourceOption{
		service.WithResourceEvents(events),
		service.WithResourceMetrics(m),
		service.WithResourceLogger(logger),
	}
	if cfg.CacheTTL > 0 {
		listingCache, backend := cache.NewCache(cache.Config{
			RedisURL:        cfg.RedisURL,
			Prefix:          cfg.CachePrefix,
			DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
			MaxSize:         cfg.CacheMaxSize,
			CleanupInterval: time.Minute,
		}, logger)
		defer func() { _ = listingCache.Close() }()
		resourceOpts = append(resourceOpts,
			service.WithListingCache(listingCache, time.Duration(cfg.CacheTTL)*time.Second))
		slog.Info("listing cache initialized", "backend", backend, "ttl_seconds", cfg.CacheTTL)
	} else {
		slog.Info("listing cache disabled")
	}

	var (
		blob      storage.Blob
		localBlob *storage.LocalBlob
	)
	if cfg.UseS3() {
		s3Blob, err := storage.NewS3Blob(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("initializing s3 storage: %w", err)
		}
		blob = s3Blob
		slog.Info("upload storage initialized", "backend", config.StorageS3, "bucket", cfg.S3Bucket)
	} else {
		localBlob = storage.NewLocalBlob(cfg.UploadsDir, cfg.UploadsURLPrefix)
		blob = localBlob
		slog.Info("upload storage initialized", "backend", config.StorageLocal, "dir", cfg.UploadsDir)
	}

	resources := service.NewResourceService(db, storage.NewStager(blob), resourceOpts...)

	sched := scheduler.New(logger, m)
	if localBlob != nil {
		err := sched.Register(scheduler.JobOrphanSweep, "Remove uploads no resource refers to",
			cfg.OrphanSweep, scheduler.OrphanSweep(localBlob, resources, cfg.OrphanMaxAge, logger))
		if err != nil {
			return fmt.Errorf("registering orphan sweep: %w", err)
		}
	}
	err = sched.Register(scheduler.JobEventCleanup, "Prune old event log entries",
		cfg.EventCleanup, scheduler.EventCleanup(events, cfg.EventRetention, logger))
	if err != nil {
		return fmt.Errorf("registering event cleanup: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	tokens := auth.NewTokenIssuer([]byte(cfg.SessionSecret), cfg.TokenTTL)

	authHandler := handler.NewAuthHandler(accounts, renderer, sessionManager)
	resourcesHandler := handler.NewResourcesHandler(resources, renderer)
	adminHandler := handler.NewAdminHandler(resources, events, sched, renderer)
	healthHandler := handler.NewHealthHandler(db, healthUploadsDir(cfg))
	apiHandler := api.NewHandler(accounts, resources, tokens)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(m.Middleware)

	// The metrics handler is nil-safe and answers 404 when disabled.
	r.Handle("/metrics", m.Handler())

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(86400)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))
	if localBlob != nil {
		prefix := cfg.UploadsURLPrefix + "/"
		r.Handle(prefix+"*", middleware.StaticCache(604800)(http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadsDir)))))
	}

	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// JSON API: bearer tokens only, so no session and no CSRF checks.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoadIdentity(nil, accounts, tokens))
		r.Mount("/", apiHandler.Routes())
	})
	slog.Info("REST API v1 mounted at /api/v1")

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.CSRF(csrfConfig))
		r.Use(middleware.LoadIdentity(sessionManager, accounts, nil))
		r.Use(middleware.NewGate().Handler)

		r.Get(handler.RouteHealth, healthHandler.Health)

		r.Get(handler.RouteRoot, resourcesHandler.Home)
		r.Get(handler.RouteResources, resourcesHandler.List)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.Post(handler.RouteRegister, authHandler.Register)
		r.Post(handler.RouteLogout, authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get(handler.RouteDashboard, resourcesHandler.Dashboard)
			r.Get(handler.RouteUpload, resourcesHandler.UploadForm)
			r.Post(handler.RouteUpload, resourcesHandler.Upload)
			r.Get(handler.RouteAdmin, adminHandler.Dashboard)
			r.Post(handler.RouteApprove, adminHandler.Approve)
			r.Get(handler.RouteJobs, adminHandler.Jobs)
			r.Post(handler.RouteRunJob, adminHandler.RunJob)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       60 * time.Second, // uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// healthUploadsDir is the directory whose free space /health reports. Remote
// storage has none.
func healthUploadsDir(cfg *config.Config) string {
	if cfg.UseS3() {
		return ""
	}
	return cfg.UploadsDir
}
