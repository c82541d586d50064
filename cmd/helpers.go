package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/audit"
	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/intake"
	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/notifications"
	"github.com/ziadkadry99/frontdesk/internal/profile"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// app holds the components shared by every command that touches the
// database.
type app struct {
	db            *db.DB
	redis         *redis.Client
	requests      *requests.Store
	knowledge     *knowledge.Store
	notifications *notifications.Store
	audit         *audit.Store
	profile       *profile.Store
	dispatcher    *notifications.Dispatcher
	matcher       *knowledge.Matcher
	engine        *lifecycle.Engine
	desk          *intake.Desk
}

// openApp opens the database, builds the lifecycle engine with the audit
// recorder plus any extra observers, and loads the pending cache.
func openApp(ctx context.Context, extra ...lifecycle.Observer) (*app, error) {
	database, err := db.Open(cfg.DatabasePath, cfg.StoreTimeout())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		db:            database,
		requests:      requests.NewStore(database),
		knowledge:     knowledge.NewStore(database),
		notifications: notifications.NewStore(database),
		audit:         audit.NewStore(database),
		profile:       profile.NewStore(database),
	}

	var channels []notifications.Channel
	channels = append(channels, notifications.NewWebhookChannel())
	if cfg.Notify.RedisAddr != "" {
		a.redis = notifications.NewRedisClient(cfg.Notify.RedisAddr, cfg.Notify.RedisPassword, cfg.Notify.RedisDB)
		channels = append(channels, notifications.NewRedisChannel(a.redis, cfg.Notify.RedisChannelPrefix))
	}
	a.dispatcher = notifications.NewDispatcher(a.notifications, cfg.Notify.SupervisorWebhook, channels, logger)

	observers := append([]lifecycle.Observer{audit.NewRecorder(a.audit, logger)}, extra...)
	a.engine = lifecycle.NewEngine(a.requests, a.knowledge, lifecycle.Options{
		Timeout:     cfg.Timeout(),
		CallTimeout: cfg.CallTimeout(),
		Notifier:    a.dispatcher,
		Deliverer:   a.dispatcher,
		Observers:   observers,
	}, logger)

	n, err := a.engine.Load(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading pending requests: %w", err)
	}
	logger.Debug("pending requests loaded", zap.Int("count", n))

	a.matcher = knowledge.NewMatcher(a.knowledge, cfg.Matcher.OverlapThreshold, cfg.Matcher.FuzzyThreshold)
	a.desk = intake.NewDesk(a.matcher, a.engine, logger)
	return a, nil
}

// Close waits for in-flight notifications and releases connections.
func (a *app) Close() {
	a.engine.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("closing redis client", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("closing database", zap.Error(err))
	}
}
