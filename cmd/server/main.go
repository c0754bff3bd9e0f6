package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gen3d-backend/cmd"
	"gen3d-backend/internal/api"
	"gen3d-backend/internal/assets"
	"gen3d-backend/internal/cache"
	"gen3d-backend/internal/database"
	"gen3d-backend/internal/lifecycle"
	"gen3d-backend/internal/provider"
	"gen3d-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

type Config struct {
	Root        string `env:"ROOT" envDefault:"./gen3d"`
	Port        int    `env:"PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:""`

	MeshyAPIKey  string `env:"MESHY_API_KEY" envDefault:""`
	MeshyBaseURL string `env:"MESHY_BASE_URL" envDefault:"https://api.meshy.ai"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	PollTimeout  time.Duration `env:"POLL_TIMEOUT" envDefault:"300s"`

	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:""`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	TiersFile  string `env:"COMPLEXITY_TIERS_FILE" envDefault:""`
	LibraryDir string `env:"MODEL_LIBRARY_DIR" envDefault:""`

	StorageProvider   string `env:"STORAGE_PROVIDER" envDefault:"local"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
	S3PublicBase      string `env:"S3_PUBLIC_BASE" envDefault:""`
}

func createObjectStore(cfg Config) (storage.ObjectStore, string) {
	switch cfg.StorageProvider {
	case "s3":
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBase:      cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("failed to create s3 storage: %v", err)
		}
		return store, ""
	case "local":
		store, err := storage.NewLocalStore(filepath.Join(cfg.Root, "storage"), "/api/files")
		if err != nil {
			log.Fatalf("failed to create local storage: %v", err)
		}
		return store, store.BaseDir()
	default:
		log.Fatalf("invalid storage provider %q: must be 'local' or 's3'", cfg.StorageProvider)
		return nil, ""
	}
}

func createCache(cfg Config, db *gorm.DB) cache.Store {
	backend := cfg.CacheBackend
	if backend == "" {
		if cfg.RedisAddr != "" {
			backend = "redis"
		} else {
			backend = "memory"
		}
	}

	switch backend {
	case "redis":
		store, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		slog.Info("using redis cache", "addr", cfg.RedisAddr)
		return store
	case "db":
		slog.Info("using database cache")
		return cache.NewDBStore(db, cfg.CacheTTL)
	case "memory":
		slog.Info("using in-memory cache")
		return cache.NewMemoryStore(cfg.CacheTTL)
	default:
		log.Fatalf("invalid cache backend %q: must be 'redis', 'db', or 'memory'", backend)
		return nil
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating root directory: %v", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.Root, "db", "gen3d.db")
	}
	if cfg.LibraryDir == "" {
		cfg.LibraryDir = filepath.Join(cfg.Root, "library")
	}
	if err := os.MkdirAll(cfg.LibraryDir, os.ModePerm); err != nil {
		log.Fatalf("error creating model library directory: %v", err)
	}

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port, "storage", cfg.StorageProvider)

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	objectStore, fileDir := createObjectStore(cfg)
	for _, bucket := range []string{storage.ModelsBucket, storage.PreviewsBucket} {
		if err := objectStore.EnsureBucket(context.Background(), bucket); err != nil {
			log.Fatalf("failed to prepare storage bucket %s: %v", bucket, err)
		}
	}

	resultCache := createCache(cfg, db)

	tiers, err := lifecycle.LoadTiers(cfg.TiersFile)
	if err != nil {
		log.Fatalf("failed to load complexity tiers: %v", err)
	}

	client := provider.NewClient(cfg.MeshyBaseURL, cfg.MeshyAPIKey)
	poller := lifecycle.NewPoller(client, cfg.PollInterval, cfg.PollTimeout)
	retriever := assets.NewRetriever(objectStore)

	orchestrator := lifecycle.NewOrchestrator(lifecycle.OrchestratorParams{
		Remote:     lifecycle.NewRemoteGenerator(client, poller, retriever, lifecycle.DefaultScorer),
		Simulation: lifecycle.NewSimulationGenerator(cfg.LibraryDir, lifecycle.DefaultScorer),
		Configured: client.Configured,
		Cache:      resultCache,
		DB:         db,
		Tiers:      tiers,
	})

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // TODO: make this an env var
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	apiHandler := api.NewBackendService(db, orchestrator, cfg.LibraryDir, fileDir)
	r.Route("/api", func(r chi.Router) {
		apiHandler.AddRoutes(r)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("could not listen on %d: %v", cfg.Port, err)
	}

	slog.Info("server stopped")
}
