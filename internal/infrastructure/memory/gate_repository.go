package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

type GateRepository struct {
	mu    sync.Mutex
	set   entity.GateSet
	saves int
}

func NewGateRepository(initial entity.GateSet) *GateRepository {
	return &GateRepository{set: initial.Clone()}
}

func (r *GateRepository) Load(_ context.Context) (entity.GateSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set.Clone(), nil
}

func (r *GateRepository) Save(_ context.Context, set entity.GateSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set = set.Clone()
	r.set.UpdatedAt = time.Now().UTC()
	r.saves++
	return nil
}

// Saves returns how many times Save was called.
func (r *GateRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

var _ repository.GateRepository = (*GateRepository)(nil)
