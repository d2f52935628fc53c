// Package app arma la aplicación de federación: store, cache, issuer, adapters,
// services, controllers y router a partir de la configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/federation/internal/bootstrap"
	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/config"
	fedctrl "github.com/dropDatabas3/federation/internal/http/controllers/federation"
	healthctrl "github.com/dropDatabas3/federation/internal/http/controllers/health"
	"github.com/dropDatabas3/federation/internal/http/router"
	fedsvc "github.com/dropDatabas3/federation/internal/http/services/federation"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
	"github.com/dropDatabas3/federation/internal/rate"
	"github.com/dropDatabas3/federation/internal/security/secretbox"
	"github.com/dropDatabas3/federation/internal/store"
)

// App es la aplicación cableada.
type App struct {
	Handler  http.Handler
	Config   *config.Config
	Store    *store.Store
	Cache    cache.Client
	Issuer   *jwtx.Issuer
	Services *fedsvc.Services

	closers []func() error
}

// Options permite inyectar dependencias ya construidas (tests, CLI).
type Options struct {
	Store *store.Store
	Cache cache.Client
}

// New construye la aplicación. Si falla a mitad libera lo ya abierto.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	log := logger.From(ctx).With(logger.Layer("app"))
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// 1. Store
	if a.Store = opts.Store; a.Store == nil {
		if a.Store, err = OpenStore(ctx, cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Store.Close)
	}
	if cfg.Storage.Migrate {
		res, merr := a.Store.Migrate(ctx)
		if merr != nil {
			return nil, fmt.Errorf("migrate: %w", merr)
		}
		log.Info("migrations applied", logger.Int("applied", len(res.Applied)))
	}

	// 2. Cache + rate limiter (comparten el cliente redis)
	var rdb *redis.Client
	if a.Cache = opts.Cache; a.Cache == nil {
		a.Cache, rdb, err = openCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Cache.Close)
	}

	// 3. Session issuer
	a.Issuer, err = jwtx.NewIssuer(cfg.Session.Issuer, []byte(cfg.Session.Secret), config.Dur(cfg.Session.TTL, 24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	// 4. Seeds
	if _, err = bootstrap.Seed(ctx, bootstrap.Repos{Services: a.Store.Services(), Roles: a.Store.Roles()}, cfg.Federation); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	// 5. Services
	a.Services = fedsvc.NewServices(fedsvc.Deps{
		Services: a.Store.Services(),
		Users:    a.Store.Users(),
		Roles:    a.Store.Roles(),
		Tokens:   a.Store.Tokens(),
		Heroku:   a.Store.Heroku(),
		Cache:    a.Cache,
		Adapters: NewRegistry(cfg.Federation),
		Sessions: a.Issuer,
		StateTTL: config.Dur(cfg.Federation.StateTTL, fedsvc.DefaultStateTTL),
		TokenTTL: config.Dur(cfg.Cache.DefaultTTL, fedsvc.DefaultTokenTTL),
	})

	// 6. Metrics
	metricsPath := ""
	if cfg.Metrics.Enabled {
		if err = metrics.Register(nil, metrics.NewPoolCollector(a.Store.PoolStat)); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metricsPath = cfg.Metrics.Path
	}

	// 7. Controllers + router
	deps := router.Deps{
		Federation: fedctrl.NewControllers(a.Services, fedctrl.Config{
			SuccessRedirect: cfg.Federation.SuccessRedirect,
			ErrorRedirect:   cfg.Federation.ErrorRedirect,
		}),
		Health: healthctrl.NewHealthController(cfg.App.Version, map[string]healthctrl.Check{
			"store": a.Store.Ping,
			"cache": a.Cache.Ping,
		}),
		Sessions:    a.Issuer,
		MetricsPath: metricsPath,
	}
	if cfg.Rate.Enabled {
		pool := rate.NewPool(rdb, cfg.Cache.Redis.Prefix)
		deps.LoginLimiter = pool.For(rate.Rule{Limit: cfg.Rate.Login.Limit, Window: config.Dur(cfg.Rate.Login.Window, time.Minute)})
		deps.SSOLimiter = pool.For(rate.Rule{Limit: cfg.Rate.SSO.Limit, Window: config.Dur(cfg.Rate.SSO.Window, time.Minute)})
	}
	a.Handler = router.New(deps)

	log.Info("federation app ready",
		logger.String("storage", a.Store.Driver()),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return a, nil
}

// Close libera store y cache en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore abre el store configurado. Postgres cifra los client secrets con secretbox.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	var box *secretbox.Box
	if key := strings.TrimSpace(cfg.Security.SecretBoxKey); key != "" {
		b, err := secretbox.New(key)
		if err != nil {
			return nil, fmt.Errorf("secretbox: %w", err)
		}
		box = b
	}
	st, err := store.Open(ctx, store.Config{
		Driver:   cfg.Storage.Driver,
		DSN:      cfg.Storage.DSN,
		MaxConns: cfg.Storage.Postgres.MaxConns,
		MinConns: cfg.Storage.Postgres.MinConns,
	}, box)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return st, nil
}

// openCache devuelve el cache y, si es redis, el cliente para compartir con el rate limiter.
func openCache(ctx context.Context, cfg *config.Config) (cache.Client, *redis.Client, error) {
	if !strings.EqualFold(cfg.Cache.Kind, "redis") {
		return cache.NewMemory(cfg.Cache.Redis.Prefix, config.Dur(cfg.Cache.DefaultTTL, 5*time.Minute)), nil, nil
	}
	addr := cfg.Cache.Redis.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return cache.NewRedisFromClient(rdb, cfg.Cache.Redis.Prefix), rdb, nil
}
