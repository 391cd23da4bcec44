package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	repo "github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// Ledger issues and consumes single-use verification tokens and answers
// whether a user is inside the verification window.
type Ledger struct {
	Users          repo.UserRepository
	Settings       *Settings
	Shortener      gateway.Shortener
	BotUsername    string
	ShortenTimeout time.Duration
	Logger         *logrus.Logger
	Now            func() time.Time
}

// VerificationLink is what the user receives to renew verification.
type VerificationLink struct {
	Token    string
	DeepLink string
	URL      string // shortened, or DeepLink when shortening failed
}

func NewLedger(users repo.UserRepository, settings *Settings, shortener gateway.Shortener, botUsername string, logger *logrus.Logger) *Ledger {
	return &Ledger{
		Users:          users,
		Settings:       settings,
		Shortener:      shortener,
		BotUsername:    botUsername,
		ShortenTimeout: 10 * time.Second,
		Logger:         logger,
		Now:            time.Now,
	}
}

// IssueToken generates a fresh token and stores its hash, replacing any
// pending token of the user.
func (l *Ledger) IssueToken(ctx context.Context, userID int64) (string, error) {
	tok, err := helpers.GenVerifyToken()
	if err != nil {
		return "", err
	}
	hash, err := helpers.HashSecret(tok)
	if err != nil {
		return "", err
	}
	if err := l.Users.SetPendingToken(ctx, userID, hash); err != nil {
		return "", storeErr("issue token", err)
	}
	return tok, nil
}

// Consume marks the user verified if token matches the pending token.
// Mismatch or absence returns ErrInvalidToken and changes nothing.
func (l *Ledger) Consume(ctx context.Context, userID int64, token string) error {
	u, err := l.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return storeErr("consume token", err)
	}
	if u.PendingTokenHash == "" || !helpers.CompareSecret(u.PendingTokenHash, token) {
		return ErrInvalidToken
	}
	ok, err := l.Users.MarkVerified(ctx, userID, u.PendingTokenHash, l.now())
	if err != nil {
		return storeErr("consume token", err)
	}
	if !ok {
		// another token was issued or consumed in between
		return ErrInvalidToken
	}
	return nil
}

// IsCurrentlyVerified reports whether userID may use gated actions at now.
// The privileged identity never touches the store.
func (l *Ledger) IsCurrentlyVerified(ctx context.Context, userID int64, now time.Time) (bool, error) {
	if l.Settings.IsPrivileged(userID) {
		return true, nil
	}
	u, err := l.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("check verification", err)
	}
	if u.Premium {
		return true, nil
	}
	return Verified(u, l.Settings.Window(), now), nil
}

// Verified applies the window rule: now < lastVerifiedAt + window.
func Verified(u *entity.User, window time.Duration, now time.Time) bool {
	if u == nil || u.LastVerifiedAt == nil {
		return false
	}
	return now.Before(u.VerifiedUntil(window))
}

// PrepareLink issues a token and builds the (possibly shortened) link that
// consumes it.
func (l *Ledger) PrepareLink(ctx context.Context, userID int64) (VerificationLink, error) {
	tok, err := l.IssueToken(ctx, userID)
	if err != nil {
		return VerificationLink{}, err
	}
	deep := DeepLink(l.BotUsername, tok)
	return VerificationLink{Token: tok, DeepLink: deep, URL: l.ShortenURL(ctx, deep)}, nil
}

// ShortenURL calls the shortener and falls back to longURL on any failure.
func (l *Ledger) ShortenURL(ctx context.Context, longURL string) string {
	cfg := l.Settings.Shortener()
	if l.Shortener == nil || !cfg.Configured() {
		if l.Logger != nil {
			l.Logger.Debug("shortener not configured")
		}
		return longURL
	}
	timeout := l.ShortenTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	short, err := l.Shortener.Shorten(c, cfg.URL, cfg.Key, longURL)
	if err != nil || short == "" {
		if l.Logger != nil {
			l.Logger.WithError(err).Warn("shortener call failed; using long url")
		}
		return longURL
	}
	return short
}

// DeepLink builds the Telegram link that opens the bot with the token as
// the /start payload.
func DeepLink(botUsername, token string) string {
	return "https://t.me/" + botUsername + "?start=" + helpers.VerifyPayloadPrefix + token
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
