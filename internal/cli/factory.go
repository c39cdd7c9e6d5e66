package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/internal/runtime"
	"github.com/springjools/ombibot/pkg/adapters/accounts"
	"github.com/springjools/ombibot/pkg/adapters/memory"
	"github.com/springjools/ombibot/pkg/adapters/ombi"
	"github.com/springjools/ombibot/pkg/adapters/redis"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/observability"
	"github.com/springjools/ombibot/pkg/ports"
	"github.com/springjools/ombibot/pkg/runner"
	"github.com/springjools/ombibot/pkg/session"
)

// App is the wired bot: catalog, sessions, engine and dispatcher.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Codec   codec.Codec
	Catalog *ombi.Client
	Manager *session.Manager
	Engine  *runtime.Engine
	Runner  *runner.Runner
	Metrics *observability.Metrics

	redis backend.UniversalClient
	// accountsFile is set when the users mapping is watched for changes.
	accountsFile *accounts.File
}

// Build wires every component from cfg. Options are applied to the runner,
// which is where channels register their messengers.
func Build(cfg *config.Config, logger *slog.Logger, runnerOpts ...runner.Option) (*App, error) {
	cd, err := cfg.Codec()
	if err != nil {
		return nil, err
	}

	catalog, err := ombi.NewClient(
		ombi.Endpoint(cfg.Server, cfg.Port, cfg.BaseURL),
		cfg.APIKey,
		ombi.WithTimeout(cfg.RequestTimeout),
		ombi.WithLanguage(cfg.LanguageCode),
		ombi.WithCodec(cd),
		ombi.WithLogger(logger.With("component", "ombi")),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing catalog client: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, Codec: cd, Catalog: catalog}

	managerOpts := []session.Option{
		session.WithStore(memory.NewStore()),
		session.WithIdleTimeout(cfg.IdleTimeout),
		session.WithLogger(logger.With("component", "session")),
	}

	if cfg.Redis.Addr != "" {
		app.redis = backend.NewUniversalClient(&backend.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(app.redis, cfg.Redis.Prefix), cfg.Redis.LockTTL))
	}

	resolver, err := app.accountResolver()
	if err != nil {
		app.Close()
		return nil, err
	}
	managerOpts = append(managerOpts, session.WithResolver(resolver))

	app.Metrics = observability.NewMetrics(
		observability.WithRuntimeCollectors(),
		observability.WithActiveSessions(app.countSessions),
	)
	hooks := observability.Aggregate(app.Metrics.Hooks(), observability.LoggingHooks(logger))
	managerOpts = append(managerOpts, session.WithLifecycleHooks(hooks))
	app.Manager = session.NewManager(managerOpts...)

	app.Engine = runtime.NewEngine(catalog,
		runtime.WithManager(app.Manager),
		runtime.WithCodec(cd),
		runtime.WithRequestTimeout(cfg.RequestTimeout),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(logger.With("component", "engine")),
	)

	opts := append([]runner.Option{
		runner.WithLogger(logger.With("component", "runner")),
		runner.WithMiddleware(
			runner.RecoverMiddleware(logger),
			runner.LoggingMiddleware(logger),
		),
	}, runnerOpts...)
	app.Runner = runner.New(app.Engine, opts...)

	return app, nil
}

// accountResolver picks the mapping source: a Redis hash when Redis is
// configured, the config file when reload or watch is on, else the loaded users.
func (a *App) accountResolver() (ports.AccountResolver, error) {
	cfg := a.Config
	switch {
	case a.redis != nil && cfg.Redis.AccountsKey != "":
		return redis.NewAccountResolver(a.redis, cfg.Redis.Prefix, cfg.Redis.AccountsKey), nil
	case (cfg.Accounts.Reload || cfg.Accounts.Watch) && cfg.Path != "":
		f, err := accounts.NewFile(cfg.Path,
			accounts.WithReload(cfg.Accounts.Reload),
			accounts.WithLogger(a.Logger.With("component", "accounts")),
		)
		if err != nil {
			return nil, fmt.Errorf("error loading account mapping: %w", err)
		}
		if cfg.Accounts.Watch {
			a.accountsFile = f
		}
		return f, nil
	default:
		return accounts.Static(cfg.Users), nil
	}
}

func (a *App) countSessions() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ids, err := a.Manager.List(ctx)
	if err != nil {
		return 0
	}
	return float64(len(ids))
}

// WatchAccounts reloads the users mapping on file changes until ctx is done.
// It returns immediately when watching is off.
func (a *App) WatchAccounts(ctx context.Context) error {
	if a.accountsFile == nil {
		return nil
	}
	return a.accountsFile.Watch(ctx)
}

// Close releases external connections.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
