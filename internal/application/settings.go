package application

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
)

// SettingsStore persists runtime settings. Persistence is best-effort.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (entity.RuntimeSettings, bool, error)
	SaveSettings(ctx context.Context, s entity.RuntimeSettings) error
}

// ShortenerSettings is the endpoint and access key of the URL shortener.
type ShortenerSettings struct {
	URL string
	Key string
}

// Configured reports whether both endpoint and key are present.
func (s ShortenerSettings) Configured() bool {
	return s.URL != "" && s.Key != ""
}

// Settings is the process-wide configuration shared by the core
// components. Reads are lock-free; setters swap whole values.
type Settings struct {
	ownerID   int64
	window    atomic.Int64
	shortener atomic.Pointer[ShortenerSettings]

	persistMu sync.Mutex
	store     SettingsStore
	logger    *logrus.Logger
}

func NewSettings(ownerID int64, window time.Duration, shortener ShortenerSettings, store SettingsStore, logger *logrus.Logger) *Settings {
	s := &Settings{ownerID: ownerID, store: store, logger: logger}
	s.window.Store(int64(window))
	s.shortener.Store(&shortener)
	return s
}

// OwnerID is the privileged identity.
func (s *Settings) OwnerID() int64 { return s.ownerID }

// IsPrivileged reports whether id is the operator.
func (s *Settings) IsPrivileged(id int64) bool {
	return s.ownerID != 0 && id == s.ownerID
}

// Window is the current verification window.
func (s *Settings) Window() time.Duration {
	return time.Duration(s.window.Load())
}

func (s *Settings) Shortener() ShortenerSettings {
	return *s.shortener.Load()
}

// SetWindowHours replaces the verification window. Hours must be >= 1.
func (s *Settings) SetWindowHours(ctx context.Context, hours int) error {
	if hours < 1 {
		return fmt.Errorf("%w: verification window must be at least 1 hour", ErrInvalidArgument)
	}
	s.window.Store(int64(time.Duration(hours) * time.Hour))
	s.persist(ctx)
	return nil
}

// SetShortener replaces the shortener endpoint and key.
func (s *Settings) SetShortener(ctx context.Context, endpoint, key string) error {
	endpoint = strings.TrimSpace(endpoint)
	key = strings.TrimSpace(key)
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: shortener endpoint must be an http(s) URL", ErrInvalidArgument)
	}
	if key == "" {
		return fmt.Errorf("%w: shortener key is empty", ErrInvalidArgument)
	}
	s.shortener.Store(&ShortenerSettings{URL: endpoint, Key: key})
	s.persist(ctx)
	return nil
}

// Snapshot returns the persisted form of the current settings.
func (s *Settings) Snapshot() entity.RuntimeSettings {
	sh := s.Shortener()
	return entity.RuntimeSettings{
		VerificationHours: int(s.Window() / time.Hour),
		ShortenerURL:      sh.URL,
		ShortenerKey:      sh.Key,
	}
}

// Restore applies settings persisted by a previous run, if any.
func (s *Settings) Restore(ctx context.Context) {
	if s.store == nil {
		return
	}
	saved, ok, err := s.store.LoadSettings(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("load runtime settings failed; using configuration")
		}
		return
	}
	if !ok {
		return
	}
	if saved.VerificationHours >= 1 {
		s.window.Store(int64(time.Duration(saved.VerificationHours) * time.Hour))
	}
	if saved.ShortenerURL != "" && saved.ShortenerKey != "" {
		s.shortener.Store(&ShortenerSettings{URL: saved.ShortenerURL, Key: saved.ShortenerKey})
	}
	if s.logger != nil {
		s.logger.WithField("verification_hours", int(s.Window()/time.Hour)).Info("runtime settings restored")
	}
}

func (s *Settings) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.store.SaveSettings(ctx, s.Snapshot()); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("persist runtime settings failed")
	}
}
