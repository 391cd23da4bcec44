package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	repo "github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
)

var ErrUserNotFound = errors.New("user not found")

// destinationPattern accepts a numeric chat id or a public handle.
var destinationPattern = regexp.MustCompile(`^(-?\d+|[A-Za-z][A-Za-z0-9_]{3,31})$`)

// UserIndexer mirrors user records into the search directory.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
	DeleteUser(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

type Service struct {
	Repo   repo.UserRepository
	Index  UserIndexer
	Logger *logrus.Logger
}

func NewService(r repo.UserRepository, index UserIndexer, logger *logrus.Logger) *Service {
	return &Service{Repo: r, Index: index, Logger: logger}
}

// Ensure creates the record on first contact. Existing records are left
// untouched.
func (s *Service) Ensure(ctx context.Context, id int64, displayName string) error {
	created, err := s.Repo.Ensure(ctx, &entity.User{ID: id, DisplayName: displayName})
	if err != nil {
		return storeErr("ensure user", err)
	}
	if created {
		if s.Logger != nil {
			s.Logger.WithField("user_id", id).Info("user registered")
		}
		s.index(ctx, id)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return u, nil
}

// NormalizeDestination validates and canonicalizes a relay target: a
// numeric chat id or a public handle with the leading '@' removed.
func NormalizeDestination(raw string) (string, error) {
	d := entity.NormalizeTarget(raw)
	if !destinationPattern.MatchString(d) {
		return "", fmt.Errorf("%w: destination must be a chat id or @handle", ErrInvalidArgument)
	}
	return d, nil
}

func (s *Service) SetDestination(ctx context.Context, id int64, raw string) (string, error) {
	d, err := NormalizeDestination(raw)
	if err != nil {
		return "", err
	}
	if err := s.Repo.SetDestination(ctx, id, d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", storeErr("set destination", err)
	}
	s.index(ctx, id)
	return d, nil
}

func (s *Service) SetPremium(ctx context.Context, id int64, premium bool) error {
	if err := s.Repo.SetPremium(ctx, id, premium); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeErr("set premium", err)
	}
	s.index(ctx, id)
	return nil
}

// Logout removes the caller's record. A missing record is not an error.
func (s *Service) Logout(ctx context.Context, id int64) error {
	if err := s.Repo.Delete(ctx, id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return storeErr("delete user", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteUser(ctx, id); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("search delete failed")
		}
	}
	return nil
}

// ResetAll deletes every user record. Gate lists are untouched.
func (s *Service) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.Repo.DeleteAll(ctx)
	if err != nil {
		return 0, storeErr("reset users", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteAll(ctx); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("search reset failed")
		}
	}
	return n, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.Repo.Count(ctx)
	if err != nil {
		return 0, storeErr("count users", err)
	}
	return n, nil
}

// DisplayName joins the first and last name the transport reports.
func DisplayName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func (s *Service) index(ctx context.Context, id int64) {
	if s.Index == nil {
		return
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("search index failed")
	}
}
