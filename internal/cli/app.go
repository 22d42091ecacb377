package cli

import (
	"context"
	"fmt"
	"io"

	"qms/clinic-queue/internal/config"
	"qms/clinic-queue/internal/hub"
	"qms/clinic-queue/internal/log"
	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/queue"
	"qms/clinic-queue/internal/store"
	"qms/clinic-queue/internal/store/memory"
	"qms/clinic-queue/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type app struct {
	cfg     config.Config
	logger  *logrus.Logger
	pool    *pgxpool.Pool
	store   store.Store
	redis   *redis.Client
	hub     *hub.Hub
	service *queue.Service
}

// openApp loads configuration and connects the configured store and
// notifier. Callers must call close.
func openApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := log.Init(cfg.LogLevel, cfg.LogFormat, logOut)

	a := &app{cfg: cfg, logger: logger}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		a.store = memory.NewStore()
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.pool = pool
		a.store = postgres.NewStore(pool)
	}

	// The hub only asks for today while broadcasting, after a.service is set.
	a.hub = hub.New(logger.WithField("component", "hub"), func() string {
		return models.FormatDate(a.service.Today())
	})
	notifiers := notify.Multi{a.hub}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, events will be dropped until it recovers")
		}
		notifiers = append(notifiers, notify.NewRedisPublisher(a.redis, cfg.EventsChannel))
	}

	loc, err := cfg.Location()
	if err != nil {
		a.close()
		return nil, err
	}
	a.service = queue.NewService(a.store, queue.Options{
		Location: loc,
		Notifier: notifiers,
		Logger:   logger.WithField("component", "queue"),
	})
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
