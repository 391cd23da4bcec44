package bot

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Runner feeds updates to the dispatcher, one goroutine per update.
type Runner struct {
	API           *tgbotapi.BotAPI
	Dispatcher    *Dispatcher
	PollTimeout   time.Duration
	HandleTimeout time.Duration
	Logger        *logrus.Logger

	wg sync.WaitGroup
}

// Dispatch handles up in the background. In-flight updates are not
// cancelled by ctx; they run until HandleTimeout.
func (r *Runner) Dispatch(ctx context.Context, up tgbotapi.Update) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil && r.Logger != nil {
				r.Logger.WithFields(logrus.Fields{"update_id": up.UpdateID, "panic": rec}).Error("update handler panicked")
			}
		}()
		timeout := r.HandleTimeout
		if timeout <= 0 {
			timeout = time.Minute
		}
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		r.Dispatcher.Handle(c, up)
	}()
}

// Poll long-polls Telegram until ctx is done, then waits for in-flight
// updates.
func (r *Runner) Poll(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(r.PollTimeout / time.Second)
	updates := r.API.GetUpdatesChan(cfg)
	if r.Logger != nil {
		r.Logger.WithField("timeout", cfg.Timeout).Info("long polling started")
	}
	for {
		select {
		case <-ctx.Done():
			r.API.StopReceivingUpdates()
			r.Wait()
			return
		case up, ok := <-updates:
			if !ok {
				r.Wait()
				return
			}
			r.Dispatch(ctx, up)
		}
	}
}

// DecodeWebhook parses an update pushed by Telegram.
func (r *Runner) DecodeWebhook(req *http.Request) (*tgbotapi.Update, error) {
	return r.API.HandleUpdate(req)
}

// Wait blocks until every dispatched update finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
