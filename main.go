package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tenant-notes/cache"
	"tenant-notes/config"
	"tenant-notes/db"
	"tenant-notes/handlers"
	"tenant-notes/service"
	"tenant-notes/store"
	"tenant-notes/token"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Warn("no .env file loaded, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}

	ctx := context.Background()

	tenants, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store setup failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer cleanup()

	tokens, err := token.NewService([]byte(cfg.Auth.JWTSecret),
		token.WithTTL(cfg.Auth.TokenTTL),
		token.WithLogger(log),
	)
	if err != nil {
		log.Fatal("token service", zap.Error(err))
	}

	h := handlers.New(service.New(tenants, tokens), log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(h, tokens, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("addr", cfg.Addr()), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Env == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// buildStore opens the configured backend, seeds the demo tenants and, when
// REDIS_ADDR is set, puts the tenant cache in front of it.
func buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.TenantStore, func(), error) {
	var (
		base    store.TenantStore
		seeder  store.Seeder
		closers []func()
	)

	switch cfg.Store.Driver {
	case "memory":
		mem := store.NewMemoryStore()
		base, seeder = mem, mem
	default:
		dialect, err := db.DialectFor(cfg.Store.Driver)
		if err != nil {
			return nil, nil, err
		}
		conn, err := db.Open(ctx, dialect, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { closeDB(conn, log) })
		if err := db.Migrate(ctx, conn, dialect); err != nil {
			conn.Close()
			return nil, nil, err
		}
		sqlStore := store.NewSQLStore(conn, dialect)
		base, seeder = sqlStore, sqlStore
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := seeder.Seed(ctx, store.DemoSeed(), cfg.Auth.BcryptCost); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("seed: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return base, cleanup, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { rdb.Close() })

	tc := cache.NewRedisTenantCache(rdb, cfg.Redis.TTL)
	if err := tc.Ping(ctx); err != nil {
		log.Warn("redis unavailable, tenant lookups will fall through", zap.Error(err))
	}
	return store.NewCachedStore(base, tc, log), cleanup, nil
}

func closeDB(conn *sql.DB, log *zap.Logger) {
	if err := conn.Close(); err != nil {
		log.Warn("closing database", zap.Error(err))
	}
}
