package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Ensure(ctx context.Context, u *entity.User) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, display_name, premium)
		VALUES ($1, $2, false)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.DisplayName)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u := &entity.User{}
	var (
		dest  *string
		token *string
	)

	row := r.pool.QueryRow(ctx, `
		SELECT id, display_name, destination, premium, last_verified_at, pending_verify_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	if err := row.Scan(&u.ID, &u.DisplayName, &dest, &u.Premium, &u.LastVerifiedAt, &token,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if dest != nil {
		u.Destination = *dest
	}
	if token != nil {
		u.PendingTokenHash = *token
	}
	return u, nil
}

func (r *UserRepository) SetDestination(ctx context.Context, id int64, destination string) error {
	return r.exec(ctx, `UPDATE users SET destination = NULLIF($2, ''), updated_at = now() WHERE id = $1`, id, destination)
}

func (r *UserRepository) SetPremium(ctx context.Context, id int64, premium bool) error {
	return r.exec(ctx, `UPDATE users SET premium = $2, updated_at = now() WHERE id = $1`, id, premium)
}

func (r *UserRepository) SetPendingToken(ctx context.Context, id int64, tokenHash string) error {
	return r.exec(ctx, `UPDATE users SET pending_verify_token = $2, updated_at = now() WHERE id = $1`, id, tokenHash)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id int64, expectedHash string, at time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET last_verified_at = $3, pending_verify_token = NULL, updated_at = now()
		WHERE id = $1 AND pending_verify_token = $2
	`, id, expectedHash, at.UTC())
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) ScanIDs(ctx context.Context, fn func(id int64) error) error {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
