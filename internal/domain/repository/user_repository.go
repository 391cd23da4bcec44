package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
)

var ErrNotFound = errors.New("not found")

// UserRepository defines the persistence operations on user records.
// Implementations must make every method atomic per document.
type UserRepository interface {
	// Ensure creates the record with default fields if it does not exist.
	// It reports whether a new record was created.
	Ensure(ctx context.Context, u *entity.User) (bool, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	SetDestination(ctx context.Context, id int64, destination string) error
	SetPremium(ctx context.Context, id int64, premium bool) error
	SetPendingToken(ctx context.Context, id int64, tokenHash string) error
	// MarkVerified clears the pending token and stamps at, but only if the
	// stored hash still equals expectedHash. It reports whether it applied.
	MarkVerified(ctx context.Context, id int64, expectedHash string, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	// ScanIDs calls fn for every stored user id until fn returns an error.
	ScanIDs(ctx context.Context, fn func(id int64) error) error
}
