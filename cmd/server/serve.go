package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Belphemur/ShowTracker/internal/api"
	"github.com/Belphemur/ShowTracker/internal/config"
	grpcserver "github.com/Belphemur/ShowTracker/internal/grpc"
	"github.com/Belphemur/ShowTracker/internal/metrics"
	"github.com/Belphemur/ShowTracker/internal/models"
	"github.com/Belphemur/ShowTracker/internal/ratelimit"
	"github.com/Belphemur/ShowTracker/internal/shows"
	"github.com/Belphemur/ShowTracker/internal/store"
)

const metricsGroup = "showtracker"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Init(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.GetLogger()

	logger.Info().
		Str("version", buildVersion()).
		Str("store_provider", cfg.Store.Provider).
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Int("rate_limit", cfg.RateLimit.Limit).
		Msg("Application started with configuration")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "showtracker@" + buildVersion(),
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Sentry, error reporting disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Store.Provider, storeConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Provider, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	repo := shows.NewRepository(st)
	if err := prepareShows(ctx, st, repo, cfg.Store.ResetOnStart, cfg.Seed); err != nil {
		return err
	}

	limiter, err := newLimiter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	if limiter != nil {
		defer limiter.Close()
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	if cfg.GRPC.Enabled {
		grpcServer, healthServer := grpcserver.NewGRPCServer()
		address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", address, err)
		}

		go grpcserver.WatchHealth(ctx, healthServer, st,
			config.ParseDuration("grpc.health_interval", cfg.GRPC.HealthInterval, 15*time.Second))
		go func() {
			logger.Info().Str("address", address).Msg("Starting gRPC health server")
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error().Err(err).Msg("Failed to serve gRPC")
			}
		}()
		defer func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		}()
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Repository:     repo,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	srv := api.NewHTTPServer(cfg.Server.Address, cfg.Server.Port, router)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}

	timeout := config.ParseDuration("server.shutdown_timeout", cfg.Server.ShutdownTimeout, 10*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown HTTP server gracefully")
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}

func storeConfig(cfg *config.Config, logger zerolog.Logger) store.ProviderConfig {
	return store.ProviderConfig{
		Logger:        store.NewZerologLogger(logger),
		RedisAddress:  cfg.Store.Redis.Address,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
		KeyPrefix:     cfg.Store.Redis.KeyPrefix,
		MaxRetries:    cfg.Store.Retry.MaxRetries,
		RetryBackoff:  config.ParseDuration("store.retry.backoff", cfg.Store.Retry.Backoff, 50*time.Millisecond),
		Group:         metricsGroup,
		Collections:   []string{shows.Collection},
	}
}

// newLimiter returns nil when rate limiting is disabled.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	if cfg.RateLimit.Limit == 0 {
		return nil, nil
	}

	redisCfg := rateLimitRedis(cfg)
	return ratelimit.New(ratelimit.Config{
		Provider:      cfg.RateLimit.Provider,
		Limit:         cfg.RateLimit.Limit,
		Window:        config.ParseDuration("rate_limit.window", cfg.RateLimit.Window, time.Second),
		MaxKeys:       cfg.RateLimit.MaxKeys,
		RedisAddress:  redisCfg.Address,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		KeyPrefix:     redisCfg.KeyPrefix,
	})
}

// rateLimitRedis resolves the limiter's redis settings. Without an address of its own the limiter
// connects to the store's server but keeps its key prefix.
func rateLimitRedis(cfg *config.Config) config.RedisConfig {
	redisCfg := cfg.RateLimit.Redis
	if redisCfg.Address != "" {
		return redisCfg
	}
	redisCfg.Address = cfg.Store.Redis.Address
	redisCfg.Password = cfg.Store.Redis.Password
	redisCfg.DB = cfg.Store.Redis.DB
	return redisCfg
}

// prepareShows optionally empties the shows collection, then seeds it when it has never been
// written to.
func prepareShows(ctx context.Context, st store.Store, repo shows.Repository, reset bool, seeds []config.ShowSeed) error {
	logger := config.GetLogger()

	if reset {
		if err := st.Reset(ctx, shows.Collection); err != nil {
			return fmt.Errorf("failed to reset shows: %w", err)
		}
		logger.Info().Msg("Shows collection reset")
	}
	if len(seeds) == 0 {
		return nil
	}

	lastID, err := repo.LastID(ctx)
	if err != nil {
		return err
	}
	if lastID != 0 {
		logger.Info().Int("last_id", lastID).Msg("Shows already present, skipping seed")
		return nil
	}

	initial := make([]models.Show, 0, len(seeds))
	for _, seed := range seeds {
		initial = append(initial, models.Show{Name: seed.Name, EpisodesSeen: seed.EpisodesSeen})
	}
	if err := repo.Seed(ctx, initial); err != nil {
		return err
	}
	logger.Info().Int("count", len(initial)).Msg("Seeded shows")
	return nil
}
