// Package app assembles the identity service from its configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/fitfuel/identity-service/internal/api"
	"github.com/fitfuel/identity-service/internal/api/handler"
	"github.com/fitfuel/identity-service/internal/auth"
	"github.com/fitfuel/identity-service/internal/core/ports"
	"github.com/fitfuel/identity-service/internal/core/service"
	"github.com/fitfuel/identity-service/internal/infrastructure/config"
	"github.com/fitfuel/identity-service/internal/infrastructure/db/memory"
	"github.com/fitfuel/identity-service/internal/infrastructure/db/mongo"
	"github.com/fitfuel/identity-service/internal/infrastructure/db/postgres"
	"github.com/fitfuel/identity-service/internal/infrastructure/db/redis"
	apphttp "github.com/fitfuel/identity-service/internal/infrastructure/http"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// UserStore is a user repository that can report its own health.
type UserStore interface {
	ports.UserRepository
	handler.Pinger
}

// App holds every long-lived collaborator of a running service.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   UserStore
	server  *apphttp.Server
	closers []func(context.Context) error
}

// New connects to the configured store (and Redis when the login throttle is
// enabled), bootstraps the administrator and builds the HTTP server.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	health := map[string]handler.Pinger{"store": store}

	var throttle ports.LoginThrottle
	if cfg.Throttle.Enabled {
		client, err := withRetry(ctx, log, "redis", func(ctx context.Context) (*goredis.Client, error) {
			return redis.Connect(ctx, redis.Config{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				PoolSize: cfg.Redis.PoolSize,
			})
		})
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })

		t := redis.NewLoginThrottle(client, cfg.Throttle.MaxAttempts, cfg.Throttle.Lockout)
		throttle = t
		health["redis"] = t
		log.Info().
			Int("max_attempts", cfg.Throttle.MaxAttempts).
			Dur("lockout", cfg.Throttle.Lockout).
			Msg("login throttle enabled")
	}

	hasher, err := auth.NewHasher(cfg.Password.Hasher, cfg.Password.BcryptCost, auth.DefaultArgon2Params)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("build hasher: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("build token codec: %w", err)
	}

	// Bootstrap failures are logged, not fatal.
	if _, err := service.BootstrapAdmin(ctx, store, hasher, service.AdminAccount{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		FullName: cfg.Admin.FullName,
		Enabled:  cfg.Admin.Enabled,
	}, log); err != nil {
		log.Error().Err(err).Msg("admin bootstrap failed")
	}

	router := api.NewRouter(api.Deps{
		Log:      log,
		Users:    store,
		Tokens:   codec,
		Auth:     service.NewAuthService(store, hasher, codec, throttle, log),
		Accounts: service.NewAccountService(store, hasher, log),
		Admin:    service.NewAdminService(store, hasher, log),
		Health:   health,
		Registry: prometheus.NewRegistry(),
	})
	a.server = apphttp.NewServer(router, cfg.Port, cfg.ShutdownTimeout, log)

	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("close dependency")
		}
	}
	a.closers = nil
}

// OpenStore connects to the user store selected by STORE_DRIVER and makes sure
// its schema (indexes or migrations) is in place.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (UserStore, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory user store; accounts are lost on restart")
		return memory.NewUserRepository(), func(context.Context) error { return nil }, nil

	case config.StorePostgres:
		pool, err := withRetry(ctx, log, "postgres", func(ctx context.Context) (*pgxpool.Pool, error) {
			return postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info().Msg("postgres user store ready")
		return postgres.NewUserRepository(pool), func(context.Context) error {
			pool.Close()
			return nil
		}, nil

	default:
		conn, err := withRetry(ctx, log, "mongo", func(ctx context.Context) (*mongoConn, error) {
			client, db, err := mongo.Connect(ctx, mongo.Config{
				URI:            cfg.Mongo.URI,
				Database:       cfg.Mongo.Database,
				AppName:        cfg.Mongo.AppName,
				ConnectTimeout: cfg.Mongo.ConnectTimeout,
			})
			if err != nil {
				return nil, err
			}
			return &mongoConn{client: client, db: db}, nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := mongo.NewUserRepository(conn.db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = conn.client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo user store ready")
		return repo, func(ctx context.Context) error { return conn.client.Disconnect(ctx) }, nil
	}
}

type mongoConn struct {
	client *mongodriver.Client
	db     *mongodriver.Database
}

// withRetry calls connect with exponential backoff until it succeeds, the
// attempts run out or ctx is done.
func withRetry[T any](ctx context.Context, log zerolog.Logger, name string, connect func(context.Context) (T, error)) (T, error) {
	var out T
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := connect(ctx)
		if err != nil {
			log.Warn().Err(err).Str("dependency", name).Int("attempt", attempt).Msg("connect failed")
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	return out, err
}

// Migrate brings the configured store's schema up to date and disconnects.
func Migrate(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	_, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	return closeStore(ctx)
}
