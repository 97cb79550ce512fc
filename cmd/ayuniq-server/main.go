package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayuniq/ayuniq/internal/config"
	"github.com/ayuniq/ayuniq/internal/domain/admin"
	"github.com/ayuniq/ayuniq/internal/domain/mapping"
	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/domain/terminology"
	"github.com/ayuniq/ayuniq/internal/domain/translation"
	"github.com/ayuniq/ayuniq/internal/platform/auth"
	"github.com/ayuniq/ayuniq/internal/platform/db"
	"github.com/ayuniq/ayuniq/internal/platform/fhir"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
	"github.com/ayuniq/ayuniq/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ayuniq-server",
		Short: "NAMASTE to ICD-11 terminology server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(termsCmd())
	rootCmd.AddCommand(translateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the terminology API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// mappingStore is the configured manual mapping repository plus whatever
// it needs to release on shutdown.
type mappingStore struct {
	repo   mapping.Repository
	health terminology.HealthChecker
	close  func()
}

func openMappingStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*mappingStore, error) {
	switch cfg.MappingStore {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		return &mappingStore{
			repo:   mapping.NewPostgresRepo(pool),
			health: db.NewChecker(pool),
			close:  pool.Close,
		}, nil
	case config.StoreBolt:
		repo, err := mapping.NewBoltRepo(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.BoltPath).Msg("opened bolt mapping store")
		return &mappingStore{
			repo: repo,
			close: func() {
				if err := repo.Close(); err != nil {
					logger.Error().Err(err).Msg("failed to close bolt mapping store")
				}
			},
		}, nil
	default:
		return &mappingStore{repo: mapping.NewMemoryRepo(), close: func() {}}, nil
	}
}

// watchCodebook reloads the codebook when its CSV changes and drops
// translations built from the previous terms.
func watchCodebook(ctx context.Context, loader *namaste.Loader, cache *translation.Cache, logger zerolog.Logger) (*namaste.Watcher, error) {
	watcher, err := namaste.NewWatcher(loader, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnReload(func(int) {
		logger.Info().Int("removed", cache.Clear()).Msg("translation cache cleared after reload")
	})
	go watcher.Start(ctx)
	return watcher, nil
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

// authMiddleware picks open development access or optional bearer tokens.
// Role checks on admin and review routes reject anonymous callers.
func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Optional:   true,
	})
}

// bodyLimit leaves room for multipart framing around the largest upload.
func bodyLimit(maxUpload int64) string {
	return fmt.Sprintf("%dK", (maxUpload+(1<<20))/1024)
}

func apiIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Ayuniq API Server",
		"version": terminology.AppVersion,
		"endpoints": map[string]string{
			"health":    "/api/health",
			"search":    "/api/search?q=",
			"fhir":      "/api/fhir/metadata",
			"lookup":    "/api/fhir/CodeSystem/$lookup",
			"translate": "/api/fhir/ConceptMap/$translate",
			"expand":    "/api/fhir/ValueSet/$expand",
			"mappings":  "/api/mapping/list",
			"admin":     "/api/admin/manual-mappings",
		},
	})
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// NAMASTE codebook
	store := namaste.NewStore(logger)
	loader := namaste.NewLoader(store, cfg.NamasteCSVPath, logger)
	if _, err := loader.Reload(ctx); err != nil {
		// The server still starts; an upload or reload can supply data later.
		logger.Error().Err(err).Str("path", cfg.NamasteCSVPath).Msg("failed to load NAMASTE data")
	}

	// ICD-11 client and translation
	icdCfg := cfg.ICD11()
	if !icdCfg.HasCredentials() {
		logger.Warn().Msg("WHO API credentials not set; ICD-11 search will return no results")
	}
	icdClient := icd11.NewClient(icdCfg, logger)
	resolver := translation.NewResolver(icdClient, translation.NewCache(), icdCfg.RequestDelay, logger)

	if cfg.WatchCSV {
		watcher, err := watchCodebook(ctx, loader, resolver.Cache(), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to watch NAMASTE CSV")
		}
		defer watcher.Stop()
	}

	// Manual mappings
	ms, err := openMappingStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.MappingStore).Msg("failed to open mapping store")
	}
	defer ms.close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = fhir.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.UploadMaxBytes)))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		logger.Warn().Msg("development auth: admin and review routes are open")
	}
	e.Use(authMiddleware(cfg))

	// API groups
	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	fhirGroup := api.Group("/fhir")

	api.GET("", apiIndex)

	// Terminology
	termSvc := terminology.NewService(store, icdClient, resolver, logger)
	if ms.health != nil {
		termSvc.SetHealthChecker(ms.health)
	}
	terminology.NewHandler(termSvc).RegisterRoutes(api, fhirGroup)

	// Mapping review
	mappingSvc := mapping.NewService(ms.repo, store, logger)
	mapping.NewHandler(mappingSvc).RegisterRoutes(api)

	// Admin
	adminSvc := admin.NewService(resolver.Cache(), loader, icdClient, cfg.UploadMaxBytes, logger)
	admin.NewHandler(adminSvc).RegisterRoutes(api)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Int("terms", store.Len()).Str("mapping_store", cfg.MappingStore).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
