// Package bot routes Telegram updates to the application services.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

type handlerFunc func(ctx context.Context, m *tgbotapi.Message, args []string) error

// requirement is what must hold before a command handler runs.
type requirement int

const (
	requireNothing requirement = iota
	requireOwner
	requireGate            // subscription gate
	requireGateAndVerified // subscription gate and verification window
)

type command struct {
	name        string
	aliases     []string
	description string
	req         requirement
	handle      handlerFunc
}

// Dispatcher binds inbound updates to the core components.
type Dispatcher struct {
	Users     *application.Service
	Ledger    *application.Ledger
	Gate      *application.AccessGate
	Gates     *application.GateList
	Forwarder *application.Forwarder
	Broadcast *application.BroadcastService
	Settings  *application.Settings
	Messenger gateway.Messenger
	Resolver  gateway.ChatResolver
	Limiter   *helpers.RedisLimiter // nil disables the per-user limit
	Tokens    *helpers.JWTManager   // nil disables /admintoken
	Logger    *logrus.Logger
	Now       func() time.Time

	// ReplyTimeout bounds each reply, edit and callback answer.
	ReplyTimeout time.Duration
	// BroadcastBudget bounds an inline /broadcast run. It is detached from
	// the update deadline.
	BroadcastBudget time.Duration

	commands []command
	byName   map[string]*command
}

// Init builds the command table. It must be called once before Handle.
func (d *Dispatcher) Init() {
	d.commands = []command{
		{name: "start", description: "Start the bot", req: requireNothing, handle: d.cmdStart},
		{name: "verify", description: "Verify with a token", req: requireNothing, handle: d.cmdVerify},
		{name: "setdestination", aliases: []string{"setchannel"}, description: "Set target channel", req: requireGateAndVerified, handle: d.cmdSetDestination},
		{name: "premium", description: "Premium features", req: requireGate, handle: d.cmdPremium},
		{name: "batchsave", description: "Save multiple media", req: requireGateAndVerified, handle: d.cmdBatchSave},
		{name: "cancel", description: "Cancel current operation", req: requireNothing, handle: d.cmdCancel},
		{name: "logout", description: "Logout from service", req: requireNothing, handle: d.cmdLogout},
		{name: "resetall", description: "Reset all data (Owner only)", req: requireOwner, handle: d.cmdResetAll},
		{name: "broadcast", description: "Broadcast message (Owner only)", req: requireOwner, handle: d.cmdBroadcast},
		{name: "addgatechannel", aliases: []string{"addfchannel"}, description: "Add force-sub channel (Owner only)", req: requireOwner, handle: d.gateCommand("addgatechannel", "channel", true)},
		{name: "addgategroup", aliases: []string{"addfgroup"}, description: "Add force-sub group (Owner only)", req: requireOwner, handle: d.gateCommand("addgategroup", "group", true)},
		{name: "removegatechannel", aliases: []string{"removefchannel"}, description: "Remove force-sub channel (Owner only)", req: requireOwner, handle: d.gateCommand("removegatechannel", "channel", false)},
		{name: "removegategroup", aliases: []string{"removefgroup"}, description: "Remove force-sub group (Owner only)", req: requireOwner, handle: d.gateCommand("removegategroup", "group", false)},
		{name: "setverificationwindow", aliases: []string{"setverifyinterval"}, description: "Set verification interval (Owner only)", req: requireOwner, handle: d.cmdSetWindow},
		{name: "setshortener", description: "Set shortener API (Owner only)", req: requireOwner, handle: d.cmdSetShortener},
		{name: "admintoken", description: "Admin API token (Owner only)", req: requireOwner, handle: d.cmdAdminToken},
	}
	d.byName = make(map[string]*command)
	for i := range d.commands {
		c := &d.commands[i]
		d.byName[c.name] = c
		for _, a := range c.aliases {
			d.byName[a] = c
		}
	}
}

// Menu is the command list registered with Telegram.
func (d *Dispatcher) Menu() []gateway.Command {
	out := make([]gateway.Command, 0, len(d.commands))
	for _, c := range d.commands {
		out = append(out, gateway.Command{Name: c.name, Description: c.description})
	}
	return out
}

// Handle processes one update. It never panics on user input and reports
// failures to the user instead of the caller.
func (d *Dispatcher) Handle(ctx context.Context, up tgbotapi.Update) {
	application.MetricUpdates.Add(1)
	switch {
	case up.Message != nil:
		d.handleMessage(ctx, up.Message)
	case up.CallbackQuery != nil:
		d.handleCallback(ctx, up.CallbackQuery)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	uid := m.From.ID
	if !d.admit(ctx, m.Chat.ID, m.From) {
		return
	}

	if m.IsCommand() {
		c, ok := d.byName[strings.ToLower(m.Command())]
		if !ok {
			return
		}
		d.runCommand(ctx, c, m)
		return
	}
	if isMedia(m) {
		if !d.passes(ctx, requireGateAndVerified, m) {
			return
		}
		d.fail(ctx, m.Chat.ID, d.relayMedia(ctx, m), logrus.Fields{"user_id": uid})
	}
}

func (d *Dispatcher) runCommand(ctx context.Context, c *command, m *tgbotapi.Message) {
	if !d.passes(ctx, c.req, m) {
		return
	}
	args := strings.Fields(m.CommandArguments())
	err := c.handle(ctx, m, args)
	d.fail(ctx, m.Chat.ID, err, logrus.Fields{"user_id": m.From.ID, "command": c.name})
}

// admit registers the user and applies the per-user rate limit. An update
// from a user that cannot be registered is answered with the generic error
// and dropped.
func (d *Dispatcher) admit(ctx context.Context, chatID int64, from *tgbotapi.User) bool {
	if err := d.Users.Ensure(ctx, from.ID, application.DisplayName(from.FirstName, from.LastName)); err != nil {
		d.fail(ctx, chatID, err, logrus.Fields{"user_id": from.ID, "stage": "ensure user"})
		return false
	}
	if d.Settings.IsPrivileged(from.ID) || d.Limiter == nil {
		return true
	}
	res, err := d.Limiter.Allow(ctx, helpers.KeyUserRate(from.ID))
	if err != nil {
		helpers.LogWarn(d.Logger, "rate limiter unavailable", err, logrus.Fields{"user_id": from.ID})
	}
	if !res.Allowed && d.Logger != nil {
		d.Logger.WithField("user_id", from.ID).Debug("update dropped by rate limit")
	}
	return res.Allowed
}

// passes checks req and, when it does not hold, sends the matching
// remediation to the user.
func (d *Dispatcher) passes(ctx context.Context, req requirement, m *tgbotapi.Message) bool {
	uid := m.From.ID
	switch req {
	case requireNothing:
		return true
	case requireOwner:
		if d.Settings.IsPrivileged(uid) {
			return true
		}
		d.reply(ctx, m.Chat.ID, textOwnerOnly)
		return false
	}

	if !d.gateOpen(ctx, m.Chat.ID, uid) {
		return false
	}
	if req == requireGate {
		return true
	}
	ok, err := d.Ledger.IsCurrentlyVerified(ctx, uid, d.now())
	if err != nil {
		d.fail(ctx, m.Chat.ID, err, logrus.Fields{"user_id": uid})
		return false
	}
	if ok {
		return true
	}
	d.promptVerification(ctx, m.Chat.ID, uid)
	return false
}

// gateOpen evaluates the subscription gate and prompts with join buttons
// when it is closed.
func (d *Dispatcher) gateOpen(ctx context.Context, chatID, uid int64) bool {
	dec := d.Gate.Evaluate(ctx, uid)
	if dec.Allowed {
		return true
	}
	application.MetricGateDenials.Add(1)
	actions := d.Gate.Remediate(ctx, d.Resolver, dec)
	d.reply(ctx, chatID, textJoinPrompt, joinKeyboard(actions)...)
	return false
}

func (d *Dispatcher) promptVerification(ctx context.Context, chatID, uid int64) {
	link, err := d.Ledger.PrepareLink(ctx, uid)
	if err != nil {
		d.fail(ctx, chatID, err, logrus.Fields{"user_id": uid})
		return
	}
	d.reply(ctx, chatID, textVerifyPrompt+link.URL, verifyKeyboard(link)...)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, rows ...[]gateway.Button) {
	c, cancel := d.bound(ctx)
	defer cancel()
	if _, err := d.Messenger.SendText(c, chatID, text, rows...); err != nil {
		helpers.LogWarn(d.Logger, "send reply failed", err, logrus.Fields{"chat_id": chatID})
	}
}

// fail logs err and tells the user something went wrong. A nil err is a
// no-op.
func (d *Dispatcher) fail(ctx context.Context, chatID int64, err error, fields logrus.Fields) {
	if err == nil {
		return
	}
	if errors.Is(err, application.ErrStore) {
		helpers.LogError(d.Logger, "store failure", err, fields)
	} else {
		helpers.LogWarn(d.Logger, "update handling failed", err, fields)
	}
	d.reply(ctx, chatID, textInternalError)
}

func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.ReplyTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.ReplyTimeout)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func isMedia(m *tgbotapi.Message) bool {
	return len(m.Photo) > 0 || m.Video != nil || m.Document != nil ||
		m.Audio != nil || m.Voice != nil || m.Animation != nil
}
