package persistence

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/config"
)

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	defer r.Close()
	if r.Enabled() {
		t.Fatal("redis enabled without address")
	}
	if err := r.Publish(context.Background(), "notifications:u-1", []byte("{}")); !errors.Is(err, ErrRedisDisabled) {
		t.Errorf("Publish err = %v", err)
	}
	if err := r.Ping(context.Background()); !errors.Is(err, ErrRedisDisabled) {
		t.Errorf("Ping err = %v", err)
	}
}
