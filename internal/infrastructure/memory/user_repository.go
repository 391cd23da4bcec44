// Package memory provides process-local repositories for local runs
// (STORE_DRIVER=memory) and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[int64]*entity.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]*entity.User), now: time.Now}
}

func (r *UserRepository) Ensure(_ context.Context, u *entity.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return false, nil
	}
	now := r.now().UTC()
	r.users[u.ID] = &entity.User{ID: u.ID, DisplayName: u.DisplayName, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	if u.LastVerifiedAt != nil {
		t := *u.LastVerifiedAt
		cp.LastVerifiedAt = &t
	}
	return &cp, nil
}

func (r *UserRepository) SetDestination(_ context.Context, id int64, destination string) error {
	return r.update(id, func(u *entity.User) { u.Destination = destination })
}

func (r *UserRepository) SetPremium(_ context.Context, id int64, premium bool) error {
	return r.update(id, func(u *entity.User) { u.Premium = premium })
}

func (r *UserRepository) SetPendingToken(_ context.Context, id int64, tokenHash string) error {
	return r.update(id, func(u *entity.User) { u.PendingTokenHash = tokenHash })
}

func (r *UserRepository) MarkVerified(_ context.Context, id int64, expectedHash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.PendingTokenHash == "" || u.PendingTokenHash != expectedHash {
		return false, nil
	}
	t := at.UTC()
	u.LastVerifiedAt = &t
	u.PendingTokenHash = ""
	u.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.users))
	r.users = make(map[int64]*entity.User)
	return n, nil
}

func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// ScanIDs iterates over a snapshot taken under the lock, so fn may call
// back into the repository.
func (r *UserRepository) ScanIDs(ctx context.Context, fn func(id int64) error) error {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) update(id int64, fn func(u *entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now().UTC()
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
