package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// cmdStart consumes a verification payload if present, then greets the
// user once the subscription gate is open.
func (d *Dispatcher) cmdStart(ctx context.Context, m *tgbotapi.Message, args []string) error {
	if len(args) > 0 && strings.HasPrefix(args[0], helpers.VerifyPayloadPrefix) {
		tok := strings.TrimPrefix(args[0], helpers.VerifyPayloadPrefix)
		if err := d.consume(ctx, m.Chat.ID, m.From.ID, tok); err != nil {
			return err
		}
	}
	if !d.gateOpen(ctx, m.Chat.ID, m.From.ID) {
		return nil
	}
	d.reply(ctx, m.Chat.ID, textWelcome)
	return nil
}

func (d *Dispatcher) cmdVerify(ctx context.Context, m *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		d.reply(ctx, m.Chat.ID, textVerifyUsage)
		return nil
	}
	return d.consume(ctx, m.Chat.ID, m.From.ID, strings.TrimPrefix(args[0], helpers.VerifyPayloadPrefix))
}

func (d *Dispatcher) consume(ctx context.Context, chatID, uid int64, token string) error {
	err := d.Ledger.Consume(ctx, uid, token)
	switch {
	case err == nil:
		application.MetricVerifications.Add(1)
		d.reply(ctx, chatID, textVerifyOK)
		return nil
	case errors.Is(err, application.ErrInvalidToken):
		d.reply(ctx, chatID, textVerifyInvalid)
		return nil
	}
	return err
}

func (d *Dispatcher) cmdSetDestination(ctx context.Context, m *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		d.reply(ctx, m.Chat.ID, textDestUsage)
		return nil
	}
	dest, err := d.Users.SetDestination(ctx, m.From.ID, args[0])
	if errors.Is(err, application.ErrInvalidArgument) {
		d.reply(ctx, m.Chat.ID, textDestInvalid)
		return nil
	}
	if err != nil {
		return err
	}
	d.reply(ctx, m.Chat.ID, textDestSet(dest))
	return nil
}

func (d *Dispatcher) cmdPremium(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	d.reply(ctx, m.Chat.ID, textPremium)
	return nil
}

func (d *Dispatcher) cmdBatchSave(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	d.reply(ctx, m.Chat.ID, textBatchSave)
	return nil
}

func (d *Dispatcher) cmdCancel(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	d.reply(ctx, m.Chat.ID, textCancel)
	return nil
}

func (d *Dispatcher) cmdLogout(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	if err := d.Users.Logout(ctx, m.From.ID); err != nil {
		return err
	}
	d.reply(ctx, m.Chat.ID, textLogout)
	return nil
}

func (d *Dispatcher) cmdResetAll(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	n, err := d.Users.ResetAll(ctx)
	if err != nil {
		return err
	}
	helpers.LogInfo(d.Logger, "all users reset", logrus.Fields{"deleted": n})
	d.reply(ctx, m.Chat.ID, textResetDone)
	return nil
}

func (d *Dispatcher) cmdBroadcast(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	text := strings.TrimSpace(m.CommandArguments())
	if text == "" {
		d.reply(ctx, m.Chat.ID, textBroadcastUsage)
		return nil
	}
	// The run outlives the update deadline so a large user base is not cut
	// short; the report is sent on the same detached context.
	bctx, cancel := d.broadcastContext(ctx)
	defer cancel()
	rep, err := d.Broadcast.Broadcast(bctx, text)
	if err != nil {
		return err
	}
	d.reply(bctx, m.Chat.ID, textBroadcastDone(rep))
	return nil
}

func (d *Dispatcher) broadcastContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if d.BroadcastBudget <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, d.BroadcastBudget)
}

// gateCommand builds the owner handler that adds or removes a gate target.
func (d *Dispatcher) gateCommand(name, kind string, add bool) handlerFunc {
	return func(ctx context.Context, m *tgbotapi.Message, args []string) error {
		if len(args) == 0 {
			d.reply(ctx, m.Chat.ID, textGateUsage(name, kind))
			return nil
		}
		k, err := entity.ParseGateKind(kind)
		if err != nil {
			return err
		}
		target := entity.NormalizeTarget(args[0])
		var changed bool
		if add {
			changed, err = d.Gates.Add(ctx, k, target)
		} else {
			changed, err = d.Gates.Remove(ctx, k, target)
		}
		if errors.Is(err, application.ErrInvalidArgument) {
			d.reply(ctx, m.Chat.ID, textGateUsage(name, kind))
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case add && changed:
			d.reply(ctx, m.Chat.ID, textGateAdded(kind, target))
		case add:
			d.reply(ctx, m.Chat.ID, textGateExists(kind))
		case changed:
			d.reply(ctx, m.Chat.ID, textGateRemoved(kind, target))
		default:
			d.reply(ctx, m.Chat.ID, textGateAbsent(kind))
		}
		return nil
	}
}

func (d *Dispatcher) cmdSetWindow(ctx context.Context, m *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		d.reply(ctx, m.Chat.ID, textWindowUsage)
		return nil
	}
	hours, err := strconv.Atoi(args[0])
	if err == nil {
		err = d.Settings.SetWindowHours(ctx, hours)
	}
	if err != nil {
		d.reply(ctx, m.Chat.ID, textWindowInvalid)
		return nil
	}
	d.reply(ctx, m.Chat.ID, textWindowSet(hours))
	return nil
}

func (d *Dispatcher) cmdSetShortener(ctx context.Context, m *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		d.reply(ctx, m.Chat.ID, textShortenerUsage)
		return nil
	}
	if err := d.Settings.SetShortener(ctx, args[0], args[1]); err != nil {
		helpers.LogWarn(d.Logger, "set shortener rejected", err, logrus.Fields{"user_id": m.From.ID})
		d.reply(ctx, m.Chat.ID, textShortenerInvalid)
		return nil
	}
	short := d.Ledger.ShortenURL(ctx, textShortenerTestURL)
	d.reply(ctx, m.Chat.ID, textShortenerSet(short))
	return nil
}

// cmdAdminToken mints a bearer token for the admin HTTP API. It is only
// answered in the owner's private chat.
func (d *Dispatcher) cmdAdminToken(ctx context.Context, m *tgbotapi.Message, _ []string) error {
	if d.Tokens == nil {
		d.reply(ctx, m.Chat.ID, textAdminAPIDisabled)
		return nil
	}
	if !m.Chat.IsPrivate() {
		d.reply(ctx, m.Chat.ID, textAdminTokenPrivate)
		return nil
	}
	tok, exp, err := d.Tokens.GenerateAdminToken(m.From.ID)
	if err != nil {
		return err
	}
	d.reply(ctx, m.Chat.ID, "🔑 Admin API token, valid until "+exp.UTC().Format(time.RFC3339)+":\n\n"+tok)
	return nil
}

// relayMedia forwards the message to the user's destination and offers
// a copy in the private chat.
func (d *Dispatcher) relayMedia(ctx context.Context, m *tgbotapi.Message) error {
	u, err := d.Users.Get(ctx, m.From.ID)
	if err != nil && !errors.Is(err, application.ErrUserNotFound) {
		return err
	}
	if !u.HasDestination() {
		d.reply(ctx, m.Chat.ID, textNoDest)
		return nil
	}

	src := gateway.MessageRef{Chat: strconv.FormatInt(m.Chat.ID, 10), MessageID: m.MessageID}
	rc, err := d.Forwarder.Relay(ctx, src, u.Destination)
	if err != nil {
		application.MetricRelayFailures.Add(1)
		d.reply(ctx, m.Chat.ID, textRelayFailed)
		return nil
	}
	application.MetricRelays.Add(1)
	d.reply(ctx, m.Chat.ID, textRelayed(rc.Destination),
		[]gateway.Button{{Text: textSendToMeButton, Data: rc.CallbackData()}})
	return nil
}

func (d *Dispatcher) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	if !d.admit(ctx, chatID, q.From) {
		return
	}
	switch {
	case q.Data == callbackGateRecheck:
		d.recheckGate(ctx, q)
	default:
		if rc, ok := application.ParseReceipt(q.Data); ok {
			d.sendToMe(ctx, q, rc)
			return
		}
		d.answer(ctx, q.ID, "", false)
	}
}

// recheckGate re-evaluates membership with fresh queries.
func (d *Dispatcher) recheckGate(ctx context.Context, q *tgbotapi.CallbackQuery) {
	dec := d.Gate.Evaluate(ctx, q.From.ID)
	if !dec.Allowed {
		application.MetricGateDenials.Add(1)
		d.answer(ctx, q.ID, textJoinMissing, true)
		return
	}
	d.answer(ctx, q.ID, "", false)
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
		if err := d.edit(ctx, chatID, q.Message.MessageID, textJoinThanks); err != nil {
			helpers.LogWarn(d.Logger, "edit prompt failed", err, logrus.Fields{"chat_id": chatID})
		}
	}
	d.reply(ctx, chatID, textWelcome)
}

func (d *Dispatcher) sendToMe(ctx context.Context, q *tgbotapi.CallbackQuery, rc application.Receipt) {
	d.answer(ctx, q.ID, "", false)
	err := d.Forwarder.RelayToRequester(ctx, rc, q.From.ID)
	text := textSentToMe
	switch {
	case errors.Is(err, application.ErrRequesterUnreachable):
		text = textStartDMFirst
	case err != nil:
		helpers.LogWarn(d.Logger, "send to me failed", err, logrus.Fields{"user_id": q.From.ID})
		text = textSendToMeFailed
	}
	if q.Message != nil && q.Message.Chat != nil {
		if eErr := d.edit(ctx, q.Message.Chat.ID, q.Message.MessageID, text); eErr == nil {
			return
		}
	}
	d.reply(ctx, q.From.ID, text)
}

func (d *Dispatcher) edit(ctx context.Context, chatID int64, messageID int, text string) error {
	c, cancel := d.bound(ctx)
	defer cancel()
	return d.Messenger.EditText(c, chatID, messageID, text)
}

func (d *Dispatcher) answer(ctx context.Context, id, text string, alert bool) {
	c, cancel := d.bound(ctx)
	defer cancel()
	if err := d.Messenger.AnswerCallback(c, id, text, alert); err != nil {
		helpers.LogWarn(d.Logger, "answer callback failed", err, nil)
	}
}
