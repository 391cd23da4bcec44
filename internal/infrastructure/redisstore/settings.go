// Package redisstore keeps runtime settings in Redis so operator changes
// survive restarts.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

type SettingsStore struct {
	rdb *redis.Client
}

func NewSettingsStore(rdb *redis.Client) *SettingsStore {
	return &SettingsStore{rdb: rdb}
}

func (s *SettingsStore) LoadSettings(ctx context.Context) (entity.RuntimeSettings, bool, error) {
	var out entity.RuntimeSettings
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, helpers.KeyRuntimeSettings(), &out)
	return out, ok, err
}

// SaveSettings stores the settings without expiry.
func (s *SettingsStore) SaveSettings(ctx context.Context, rs entity.RuntimeSettings) error {
	return helpers.RedisSetJSON(ctx, s.rdb, helpers.KeyRuntimeSettings(), rs, 0)
}
