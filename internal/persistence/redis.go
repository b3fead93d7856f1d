package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/config"
)

const redisDialCheckTimeout = 2 * time.Second

// ErrRedisDisabled is returned by a Redis built without an address.
var ErrRedisDisabled = errors.New("redis client not configured")

// Redis carries notification pushes to live subscribers.
type Redis struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedis builds a client for cfg. An empty address disables Redis. An
// unreachable server is logged, not fatal: pushes fail and notifications
// stay in the inbox.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR empty; push delivery disabled")
		return &Redis{logger: logger}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialCheckTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}
	return &Redis{Client: client, logger: logger}
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// Publish sends payload to the subscribers of channel. Zero receivers is not
// an error; the notification is already stored.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	receivers, err := r.Client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return err
	}
	if r.logger != nil {
		r.logger.Debug("notification pushed", zap.String("channel", channel), zap.Int64("receivers", receivers))
	}
	return nil
}
