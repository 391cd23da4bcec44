package application

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	repo "github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

// GateList is the in-memory source of truth for required chats. Every
// mutation is persisted before the cached copy changes. Published slices
// are never modified in place, so Snapshot can hand them out without
// copying.
type GateList struct {
	mu     sync.RWMutex
	set    entity.GateSet
	repo   repo.GateRepository
	logger *logrus.Logger
}

func NewGateList(r repo.GateRepository, logger *logrus.Logger) *GateList {
	return &GateList{repo: r, logger: logger}
}

// Load reads the persisted set. It must complete before updates are served.
func (l *GateList) Load(ctx context.Context) error {
	set, err := l.repo.Load(ctx)
	if err != nil {
		return storeErr("load gate list", err)
	}
	l.mu.Lock()
	l.set = set
	l.mu.Unlock()
	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{"channels": len(set.Channels), "groups": len(set.Groups)}).Info("gate list loaded")
	}
	return nil
}

// Snapshot returns the current set. Callers must not modify it.
func (l *GateList) Snapshot() entity.GateSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}

// Add appends target to kind. It reports false when already present.
func (l *GateList) Add(ctx context.Context, kind entity.GateKind, target string) (bool, error) {
	target = entity.NormalizeTarget(target)
	if target == "" {
		return false, fmt.Errorf("%w: empty target", ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.set.List(kind)
	if slices.Contains(cur, target) {
		return false, nil
	}
	next := make([]string, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, target)
	return true, l.commit(ctx, l.set.With(kind, next))
}

// Remove deletes target from kind. It reports false when not present.
func (l *GateList) Remove(ctx context.Context, kind entity.GateKind, target string) (bool, error) {
	target = entity.NormalizeTarget(target)
	if target == "" {
		return false, fmt.Errorf("%w: empty target", ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.set.List(kind)
	idx := slices.Index(cur, target)
	if idx < 0 {
		return false, nil
	}
	next := make([]string, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	return true, l.commit(ctx, l.set.With(kind, next))
}

// commit must be called with mu held.
func (l *GateList) commit(ctx context.Context, next entity.GateSet) error {
	if err := l.repo.Save(ctx, next); err != nil {
		return storeErr("save gate list", err)
	}
	l.set = next
	return nil
}
