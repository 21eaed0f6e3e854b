// Package main - entry point for the Mektep Portal data layer CLI.
//
// The binary wires the full stack together: configuration, the platform
// client, a persistent cache store (memory, Redis or PostgreSQL), and the
// portal context object. It then runs the quickstart refresh and prints
// today's schedule, which exercises every layer end to end.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mektep-hub/mektep-portal/config"
	"github.com/mektep-hub/mektep-portal/internal/application/portal"
	"github.com/mektep-hub/mektep-portal/internal/domain/session"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/persistence/memory"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/persistence/postgres"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/persistence/redis"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting Mektep Portal",
		"env", cfg.App.Environment,
		"store", cfg.Store.Backend,
		"quickstart", cfg.App.Quickstart,
	)

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build store: %w", err)
	}
	defer closeStore()

	clientCfg := mektep.DefaultClientConfig(cfg.Mektep.BaseURL)
	clientCfg.Timeout = cfg.Mektep.RequestTimeout
	clientCfg.Logger = log
	clientCfg.Debug = cfg.App.Debug
	client := mektep.NewClient(clientCfg)

	p := portal.New(ctx, portal.Options{
		Client: client,
		Store:  store,
		Credentials: session.Credentials{
			Username: cfg.Mektep.Username,
			Password: cfg.Mektep.Password,
			Server:   cfg.Mektep.Server,
		},
		Logger: log,
	})

	if cfg.App.Demo {
		p.Schedule.SetDemo(ctx, true)
	}

	p.Start(ctx, cfg.App.Quickstart)
	p.Await()

	if err := printToday(ctx, p); err != nil {
		return err
	}

	tl := p.Timeline.Timeline()
	log.Info("timeline state", "homeworks", len(tl.Homeworks), "items", len(tl.Items))

	return nil
}

// printToday renders today's normalized schedule to stdout.
func printToday(ctx context.Context, p *portal.Portal) error {
	sched, err := p.Schedule.Today(ctx)
	if err != nil {
		return fmt.Errorf("failed to load today's schedule: %w", err)
	}

	fmt.Printf("Schedule for %s\n", sched.Date.Format("Monday, 2 January 2006"))
	if len(sched.Classes) == 0 {
		fmt.Println("  (no classes)")
		return nil
	}
	for _, class := range sched.Classes {
		if class.Empty() {
			fmt.Printf("  %s-%s  (free)\n", class.StartTime, class.EndTime)
			continue
		}
		fmt.Printf("  %s-%s  %s", class.StartTime, class.EndTime, class.Subject)
		if len(class.Rooms) > 0 {
			fmt.Printf(" (room %s)", class.Rooms[0])
		}
		fmt.Println()
	}
	return nil
}

// buildStore constructs the configured cache store and its cleanup.
func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (portal.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.KeyPrefix = cfg.Redis.KeyPrefix
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		store, err := redis.NewStore(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("redis store connected", "addr", redisCfg.Addr())
		return store, func() { _ = store.Close() }, nil

	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("postgres store connected")
		return store, func() { store.Close() }, nil

	default:
		log.Info("using in-memory store, cache will not survive restarts")
		return memory.NewStore(), func() {}, nil
	}
}

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
