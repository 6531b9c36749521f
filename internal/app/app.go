// Package app assembles the auth components from configuration. Both the
// API server and natctl build on it.
package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/database"
	"github.com/redmonkez12/natours-api/internal/email"
	httpServer "github.com/redmonkez12/natours-api/internal/http"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/metrics"
	"github.com/redmonkez12/natours-api/internal/ratelimit"
	"github.com/redmonkez12/natours-api/internal/user"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Registry   *prometheus.Registry
	Accounts   *auth.AccountStore
	Service    *auth.Service
	Guard      *auth.Guard
	Limiter    ratelimit.Limiter
	Handler    *auth.Handler
	Middleware *auth.Middleware

	closers []func() error
}

// Options tune New for callers that only need part of the stack
type Options struct {
	SkipMigrations bool
	SkipRedis      bool
}

// New connects the account store and rate limiter backends and builds the
// auth service on top of them. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts Options) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(a.Registry)

	repo, err := a.openRepository(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time:    cfg.Auth.Argon2Time,
		Memory:  cfg.Auth.Argon2MemoryKiB,
		Threads: cfg.Auth.Argon2Threads,
	})
	pool := auth.NewHashPool(hasher, cfg.Auth.HashConcurrency, recorder)

	a.Accounts, err = auth.NewAccountStore(repo, pool)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens, err := NewTokenService(cfg.Auth)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Limiter = a.openLimiter(ctx, opts)

	mailer := email.NewService(email.Config{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
		ResetTTL:     cfg.Auth.ResetTokenTTL,
	})
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP_HOST is not set, password reset emails will fail")
	}

	resets := auth.NewResetTokenGenerator(cfg.Auth.ResetTokenTTL)
	a.Service = auth.NewService(a.Accounts, tokens, resets, mailer, logger, recorder)
	a.Guard = auth.NewGuard(tokens, a.Accounts, cfg.Auth.CookieName, recorder)
	a.Middleware = auth.NewMiddleware(a.Guard)
	a.Handler = auth.NewHandler(a.Service, a.Accounts, a.Limiter, auth.HandlerConfig{
		Cookie: auth.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: !cfg.Server.IsDevelopment(),
		},
		AllowSignupRole: cfg.Auth.AllowSignupRole,
	})

	return a, nil
}

// NewTokenService builds the session token codec named by cfg.TokenStrategy
func NewTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyJWT:
		svc, err := auth.NewJWTService(cfg.TokenKey, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.TokenStrategyPaseto, "":
		svc, err := auth.NewPasetoService(cfg.TokenKey, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, oops.In("app").Code("CONFIG_INVALID").
			With("key", "AUTH_TOKEN_STRATEGY").
			Errorf("unknown token strategy %q", cfg.TokenStrategy)
	}
}

// Router returns the HTTP handler serving the API
func (a *App) Router() http.Handler {
	return httpServer.NewRouter(httpServer.RouterConfig{
		IsDevelopment:  a.Config.Server.IsDevelopment(),
		TrustedOrigins: a.Config.Server.TrustedOrigins,
		RateLimitRetry: a.Config.RateLimit.Window,
		TrustedProxies: a.Config.Server.ProxyPrefixes(),
	}, httpServer.Dependencies{
		AuthHandler:    a.Handler,
		AuthMiddleware: a.Middleware,
		Limiter:        a.Limiter,
		Gatherer:       a.Registry,
		Logger:         a.Logger,
	})
}

// Close releases connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openRepository(ctx context.Context, opts Options) (auth.AccountRepository, error) {
	cfg := a.Config.Database
	if cfg.Backend == config.StoreBackendMemory {
		a.Logger.Warn("using in-memory account store, accounts are lost on restart")
		return user.NewMemoryRepository(), nil
	}

	if !opts.SkipMigrations {
		if err := database.RunMigrations(cfg.MigrationURL()); err != nil {
			return nil, oops.In("app").Code("DB_MIGRATE_FAILED").Wrap(err)
		}
		a.Logger.Info("database migrations applied")
	}

	db, err := database.Open(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, oops.In("app").Code("DB_CONNECT_FAILED").With("host", cfg.Host).Wrap(err)
	}
	a.closers = append(a.closers, db.Close)

	return user.NewRepository(db), nil
}

// openLimiter prefers Redis and falls back to a process-local limiter when
// Redis is not configured or unreachable
func (a *App) openLimiter(ctx context.Context, opts Options) ratelimit.Limiter {
	limits := ratelimit.Config{
		Requests: a.Config.RateLimit.Requests,
		Window:   a.Config.RateLimit.Window,
		Cooldown: a.Config.RateLimit.Cooldown,
	}

	if a.Config.Redis.Enabled() && !opts.SkipRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Address(),
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			a.closers = append(a.closers, client.Close)
			a.Logger.Info("rate limiting backed by redis", "addr", a.Config.Redis.Address())
			return ratelimit.NewRedisLimiter(client, limits)
		}
		a.Logger.LogError("redis unreachable, falling back to local rate limiting", err)
		client.Close()
	}

	local := ratelimit.NewLocalLimiter(limits)
	a.closers = append(a.closers, func() error {
		local.Stop()
		return nil
	})
	return local
}
