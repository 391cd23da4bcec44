package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

// GateRepository stores the gate aggregate as one row keyed by
// entity.GateSetID with the two lists as text arrays.
type GateRepository struct {
	pool *pgxpool.Pool
}

func NewGateRepository(pool *pgxpool.Pool) *GateRepository {
	return &GateRepository{pool: pool}
}

func (r *GateRepository) Load(ctx context.Context) (entity.GateSet, error) {
	var set entity.GateSet
	row := r.pool.QueryRow(ctx, `
		SELECT channel_targets, group_targets, updated_at
		FROM gate_settings
		WHERE id = $1
	`, entity.GateSetID)
	err := row.Scan(&set.Channels, &set.Groups, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO gate_settings (id, channel_targets, group_targets)
			VALUES ($1, '{}', '{}')
			ON CONFLICT (id) DO NOTHING
		`, entity.GateSetID)
		return entity.GateSet{}, err
	}
	if err != nil {
		return entity.GateSet{}, err
	}
	return set, nil
}

func (r *GateRepository) Save(ctx context.Context, set entity.GateSet) error {
	channels := set.Channels
	if channels == nil {
		channels = []string{}
	}
	groups := set.Groups
	if groups == nil {
		groups = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gate_settings (id, channel_targets, group_targets, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET channel_targets = EXCLUDED.channel_targets, group_targets = EXCLUDED.group_targets, updated_at = now()
	`, entity.GateSetID, channels, groups)
	return err
}

var _ repository.GateRepository = (*GateRepository)(nil)
