package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	"github.com/vanelang/review-flow/internal/config"
	"github.com/vanelang/review-flow/internal/db"
	appmw "github.com/vanelang/review-flow/internal/http/middleware"
	"github.com/vanelang/review-flow/internal/http/routes"
	"github.com/vanelang/review-flow/internal/observability"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := observability.NewLogger(cfg.AppEnv)
	log.Logger = logger

	root := &cobra.Command{
		Use:           "reviewflow",
		Short:         "Review collection API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(cfg, logger),
		migrateCmd(cfg),
		rollupCmd(cfg, logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("reviewflow failed")
		stop()
		os.Exit(1)
	}
}

func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// newCache returns the Redis stats cache, or a no-op cache when Redis is not
// configured or not reachable.
func newCache(ctx context.Context, cfg *config.Config, m *observability.Metrics, logger zerolog.Logger) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.Nop{}, func() {}
	}
	r := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, m)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, stats cache disabled")
		_ = r.Close()
		return cache.Nop{}, func() {}
	}
	return r, func() { _ = r.Close() }
}

func serveCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if len(cfg.AuthSecret) == 0 {
				return errors.New("APP_AUTH_SECRET is required")
			}
			if _, err := appmw.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
				return err
			}
			gdb, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}

			metrics := observability.NewMetrics()
			statsCache, closeCache := newCache(ctx, cfg, metrics, logger)
			defer closeCache()

			db.StartRetentionWorker(ctx, gdb, cfg.UsageRetentionDays, logger)
			db.StartUsageRollupWorker(ctx, gdb, logger)

			srv := &fasthttp.Server{
				Handler: routes.New(routes.Deps{
					DB:      gdb,
					Config:  cfg,
					Cache:   statsCache,
					Metrics: metrics,
					Logger:  logger,
				}),
				Name:               "reviewflow",
				ReadTimeout:        15 * time.Second,
				WriteTimeout:       15 * time.Second,
				IdleTimeout:        60 * time.Second,
				MaxRequestBodySize: 1 << 20,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.ListenAddr).Msg("reviewflow listening")
				errc <- srv.ListenAndServe(cfg.ListenAddr)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.ShutdownWithContext(shutdownCtx)
		},
	}
}

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := openDB(cmd.Context(), cfg)
			if err == nil {
				log.Info().Msg("schema up to date")
			}
			return err
		},
	}
}

func rollupCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "rollup",
		Short: "Run usage roll-up and retention once, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			gdb, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			users, err := db.RunUsageRollupOnce(ctx, gdb, now)
			if err != nil {
				return err
			}
			res, err := db.RunRetentionOnce(ctx, gdb, cfg.UsageRetentionDays, now)
			if err != nil {
				return err
			}
			logger.Info().
				Int("users", users).
				Int64("usage_rows_deleted", res.UsageRows).
				Int64("reviews_deleted", res.ReviewsRows).
				Msg("rollup complete")
			return nil
		},
	}
}
