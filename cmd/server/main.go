package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bingKegeta/GeoTourist-Backend/internal/config"
	"github.com/bingKegeta/GeoTourist-Backend/internal/store/mongostore"
	"github.com/bingKegeta/GeoTourist-Backend/pkg/metrics"
	"github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor"
	twofactorhttp "github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor/http"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("geotourist two-factor server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("GEOTOURIST_CONFIG"); envConfig != "" && *configPath == "" {
		*configPath = envConfig
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load configuration", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("Starting two-factor server",
		"version", version,
		"rp_id", cfg.RelyingParty.RPID,
		"storage", cfg.Storage.Backend,
		"addr", cfg.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, credentials, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	service, err := twofactor.NewService(twofactor.ServiceParams{
		Config:      &cfg.RelyingParty,
		Directory:   directory,
		Credentials: credentials,
	})
	if err != nil {
		logger.Error("Failed to create ceremony service", slog.Any("error", err))
		os.Exit(1)
	}

	handler := twofactorhttp.NewHandler(service).WithLogger(logger)
	if cfg.Auth.JWT.Secret != "" {
		generatorCfg := &twofactor.JWTGeneratorConfig{
			Secret:    []byte(cfg.Auth.JWT.Secret),
			Issuer:    cfg.Auth.JWT.Issuer,
			ExpiresIn: cfg.Auth.JWT.ExpiresIn,
		}
		if cfg.Auth.JWT.Audience != "" {
			generatorCfg.Audience = []string{cfg.Auth.JWT.Audience}
		}
		tokens, err := twofactor.NewJWTGenerator(generatorCfg)
		if err != nil {
			logger.Error("Failed to create token generator", slog.Any("error", err))
			os.Exit(1)
		}
		handler = handler.WithTokenGenerator(tokens)
	}

	metrics.SetEnabled(cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		stopCollector := metrics.StartResourceCollector(ctx, 15*time.Second)
		defer stopCollector()
	}

	router := newRouter(cfg, handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("Server started", "addr", cfg.Addr())

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Error("Server error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// buildStores wires the configured storage backend. The returned cleanup
// disconnects the Mongo client; for the memory backend it is a no-op.
func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (twofactor.UserDirectory, twofactor.CredentialStore, func(), error) {
	if cfg.Storage.Backend == "memory" {
		logger.Warn("Using in-memory storage, ceremony state will not survive restarts")
		directory := twofactor.NewMemoryDirectory()
		return directory, twofactor.NewMemoryCredentialStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Storage.URI))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Storage.Database)
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("Error disconnecting from mongo", slog.Any("error", err))
		}
	}
	return mongostore.NewDirectory(db), mongostore.NewCredentialStore(db), cleanup, nil
}

// newRouter assembles the HTTP routing tree.
func newRouter(cfg *config.Config, handler *twofactorhttp.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Metrics.Enabled {
		r.Use(metrics.HTTPMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api/2fa", func(r chi.Router) {
		twofactorhttp.MountChi(r, handler)
	})

	return r
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
