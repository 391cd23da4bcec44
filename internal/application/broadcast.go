package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	repo "github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
	"github.com/MjBots-creater/save-restricted-bot/pkg/broadcast"
)

const broadcastHeader = "📢 Broadcast from Save Restricted Content Bot:\n\n"

// JobPublisher enqueues broadcast jobs for the worker process.
type JobPublisher interface {
	PublishJSON(ctx context.Context, messageID string, body any) error
}

// BroadcastReport accounts for every recipient exactly once:
// Recipients == Delivered + Queued + Failed + Skipped.
type BroadcastReport struct {
	Recipients int
	Delivered  int
	Failed     int
	Queued     int
	Skipped    int // not attempted because ctx ended first
}

// BroadcastService sends a text to every known user, one recipient at a
// time. A failed recipient never stops the others.
type BroadcastService struct {
	Users     repo.UserRepository
	Messenger gateway.Messenger
	Publisher JobPublisher // nil means deliver inline
	Timeout   time.Duration
	Logger    *logrus.Logger
}

func NewBroadcastService(users repo.UserRepository, messenger gateway.Messenger, publisher JobPublisher, timeout time.Duration, logger *logrus.Logger) *BroadcastService {
	return &BroadcastService{Users: users, Messenger: messenger, Publisher: publisher, Timeout: timeout, Logger: logger}
}

// BroadcastText is the text every recipient receives.
func BroadcastText(text string) string {
	return broadcastHeader + text
}

func (b *BroadcastService) Broadcast(ctx context.Context, text string) (BroadcastReport, error) {
	var ids []int64
	if err := b.Users.ScanIDs(ctx, func(id int64) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		return BroadcastReport{}, storeErr("scan users", err)
	}

	rep := BroadcastReport{Recipients: len(ids)}
	body := BroadcastText(text)
	batch := broadcast.NewBatch()
	for i, id := range ids {
		if ctx.Err() != nil {
			rep.Skipped = len(ids) - i
			break
		}
		if b.Publisher != nil {
			job := broadcast.NewJob(batch, id, body)
			if err := b.Publisher.PublishJSON(ctx, job.ID, job); err != nil {
				rep.Failed++
				b.warn(err, id, "broadcast enqueue failed")
				continue
			}
			rep.Queued++
			continue
		}
		if err := b.send(ctx, id, body); err != nil {
			rep.Failed++
			b.warn(err, id, "broadcast delivery failed")
			continue
		}
		rep.Delivered++
	}
	if b.Logger != nil {
		b.Logger.WithFields(logrus.Fields{
			"batch":      batch,
			"recipients": rep.Recipients,
			"delivered":  rep.Delivered,
			"queued":     rep.Queued,
			"failed":     rep.Failed,
			"skipped":    rep.Skipped,
		}).Info("broadcast finished")
	}
	return rep, nil
}

// DeliverJob sends one queued job. retry is true when the transport asked
// to slow down and the job still has attempts left.
func (b *BroadcastService) DeliverJob(ctx context.Context, job broadcast.Job) (retry bool, err error) {
	err = b.send(ctx, job.ChatID, job.Text)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gateway.ErrRateLimited) && job.Attempt+1 < broadcast.MaxAttempts {
		return true, err
	}
	return false, err
}

func (b *BroadcastService) send(ctx context.Context, chatID int64, text string) error {
	c, cancel := ctx, context.CancelFunc(func() {})
	if b.Timeout > 0 {
		c, cancel = context.WithTimeout(ctx, b.Timeout)
	}
	defer cancel()
	_, err := b.Messenger.SendText(c, chatID, text)
	return err
}

func (b *BroadcastService) warn(err error, id int64, msg string) {
	if b.Logger != nil {
		b.Logger.WithError(err).WithField("chat_id", id).Warn(msg)
	}
}
