package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"reviewverso/api"
	"reviewverso/config"
	"reviewverso/handlers"
	"reviewverso/internal/backend"
	"reviewverso/services/auth"
	"reviewverso/services/lists"
	"reviewverso/services/metadata"
	"reviewverso/services/reviews"
	"reviewverso/services/sessions"
	"reviewverso/services/users"
	"reviewverso/utils"
)

const (
	shutdownTimeout = 15 * time.Second
	// Providers are slower than the backend; OpenLibrary retries on top of this.
	providerTimeout = 15 * time.Second
)

func main() {
	configPath := flag.String("config", envOr("REVIEWVERSO_CONFIG", filepath.Join("cache", "settings.json")), "path to the settings file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Printf("[main] %v", err)
	}

	manager := config.NewManager(*configPath)
	settings, err := manager.Load()
	if err != nil {
		log.Fatalf("[main] load settings: %v", err)
	}

	logger, closeLog := setupLogging(settings.Logging)
	defer closeLog()

	sessionStore, err := sessions.NewService(nil, filepath.Join(settings.Server.StorageDir, "sessions"))
	if err != nil {
		log.Fatalf("[main] sessions: %v", err)
	}
	if n, err := sessionStore.Rehydrate(); err != nil {
		log.Printf("[main] rehydrate sessions: %v", err)
	} else {
		log.Printf("[main] rehydrated %d session(s)", n)
	}

	backendClient := backend.NewClient(settings.Backend.BaseURL, &http.Client{Timeout: settings.Backend.Timeout()})
	metadataSvc := metadata.NewService(settings, &http.Client{Timeout: providerTimeout})
	authSvc := auth.NewService(backendClient, sessionStore)
	usersSvc := users.NewService(backendClient, sessionStore)
	reviewsSvc := reviews.NewService(backendClient)
	listsSvc := lists.NewService(backendClient, metadataSvc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5 attempts per minute per client IP.
	authLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)
	go authLimiter.Run(ctx)
	// IGDB allows 4 requests per second for the whole deployment.
	igdbLimiter := api.NewIPRateLimiter(rate.Limit(1), 4)
	go igdbLimiter.Run(ctx)
	go sessionStore.Run(ctx, sessions.DefaultCleanupInterval)

	router := utils.NewRouter(utils.CORSConfig{
		Origins:      settings.Server.CORSOrigins,
		AllowPrivate: settings.Server.CORSAllowPrivate,
	})
	if settings.Server.CORSAllowPrivate {
		log.Printf("[main] WARNING: CORS accepts localhost and private-network origins")
	}
	router.Use(api.RequestLogger(logger))
	handlers.Routes{
		Catalog:     handlers.NewCatalogHandler(metadataSvc),
		Reviews:     handlers.NewReviewsHandler(reviewsSvc),
		Lists:       handlers.NewListsHandler(listsSvc),
		Auth:        handlers.NewAuthHandler(authSvc, usersSvc),
		Users:       handlers.NewUsersHandler(usersSvc),
		Health:      handlers.NewHealthHandler(sessionStore),
		Session:     api.SessionMiddleware(sessionStore),
		AuthLimiter: authLimiter,
		IGDBLimiter: igdbLimiter,
	}.Register(router)

	srv := &http.Server{
		Addr:              settings.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		log.Printf("[main] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[main] shutdown: %v", err)
		}
	}()

	log.Printf("[main] ReviewVerso %s listening on %s (backend %s)", handlers.GetVersion(), srv.Addr, backendClient.BaseURL())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[main] server: %v", err)
	}
	<-drained
}

// setupLogging sends both the log and slog output to stderr and, when a file
// is configured, to a rotating log file.
func setupLogging(cfg config.LoggingSettings) (*slog.Logger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if file := strings.TrimSpace(cfg.File); file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotator)
		closeFn = func() { _ = rotator.Close() }
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})), closeFn
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
