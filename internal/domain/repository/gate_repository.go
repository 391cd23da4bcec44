package repository

import (
	"context"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
)

// GateRepository persists the gate aggregate as a single document.
type GateRepository interface {
	// Load returns an empty set (and creates it) when nothing is stored yet.
	Load(ctx context.Context) (entity.GateSet, error)
	Save(ctx context.Context, set entity.GateSet) error
}
