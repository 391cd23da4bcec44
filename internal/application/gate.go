package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

// Decision is the outcome of one gate evaluation. Missing lists keep the
// configured order.
type Decision struct {
	Allowed         bool
	MissingChannels []string
	MissingGroups   []string
}

// JoinAction is one remediation button for a missing requirement.
type JoinAction struct {
	Label string
	URL   string
}

// AccessGate decides whether a user satisfies every membership requirement.
type AccessGate struct {
	Gates       *GateList
	Oracle      gateway.MembershipOracle
	Settings    *Settings
	RetryOnce   bool
	Concurrency int
	Timeout     time.Duration // per transport call; zero means ctx only
	Logger      *logrus.Logger
}

func NewAccessGate(gates *GateList, oracle gateway.MembershipOracle, settings *Settings, retryOnce bool, concurrency int, timeout time.Duration, logger *logrus.Logger) *AccessGate {
	return &AccessGate{
		Gates:       gates,
		Oracle:      oracle,
		Settings:    settings,
		RetryOnce:   retryOnce,
		Concurrency: concurrency,
		Timeout:     timeout,
		Logger:      logger,
	}
}

// Evaluate queries membership for every configured target. Each call is
// independent; nothing about a previous denial is remembered.
func (g *AccessGate) Evaluate(ctx context.Context, userID int64) Decision {
	if g.Settings.IsPrivileged(userID) {
		return Decision{Allowed: true}
	}
	set := g.Gates.Snapshot()
	if set.Empty() {
		return Decision{Allowed: true}
	}

	reqs := set.Requirements()
	missing := make([]bool, len(reqs))

	var eg errgroup.Group
	if g.Concurrency > 0 {
		eg.SetLimit(g.Concurrency)
	}
	for i, req := range reqs {
		eg.Go(func() error {
			missing[i] = !g.isMember(ctx, req, userID)
			return nil
		})
	}
	_ = eg.Wait()

	d := Decision{}
	for i, req := range reqs {
		if !missing[i] {
			continue
		}
		if req.Kind == entity.GateGroup {
			d.MissingGroups = append(d.MissingGroups, req.Target)
		} else {
			d.MissingChannels = append(d.MissingChannels, req.Target)
		}
	}
	d.Allowed = len(d.MissingChannels) == 0 && len(d.MissingGroups) == 0
	return d
}

func (g *AccessGate) isMember(ctx context.Context, req entity.GateRequirement, userID int64) bool {
	status, err := g.memberStatus(ctx, req.Target, userID)
	if err != nil && g.RetryOnce && ctx.Err() == nil {
		status, err = g.memberStatus(ctx, req.Target, userID)
	}
	if err != nil {
		if g.Logger != nil {
			g.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"target":  req.Target,
				"kind":    req.Kind,
			}).Warn("membership check failed; treating as missing")
		}
		return false
	}
	return status != gateway.StatusLeft && status != gateway.StatusKicked
}

func (g *AccessGate) memberStatus(ctx context.Context, chat string, userID int64) (string, error) {
	c, cancel := g.bound(ctx)
	defer cancel()
	return g.Oracle.MemberStatus(c, chat, userID)
}

func (g *AccessGate) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.Timeout)
}

// Remediate builds one join action per missing target. Resolution failures
// and lookups slower than the gate timeout fall back to a generic label and
// a t.me link built from the handle.
func (g *AccessGate) Remediate(ctx context.Context, resolver gateway.ChatResolver, d Decision) []JoinAction {
	type item struct {
		kind   entity.GateKind
		target string
	}
	items := make([]item, 0, len(d.MissingChannels)+len(d.MissingGroups))
	for _, c := range d.MissingChannels {
		items = append(items, item{entity.GateChannel, c})
	}
	for _, gr := range d.MissingGroups {
		items = append(items, item{entity.GateGroup, gr})
	}

	out := make([]JoinAction, len(items))
	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, cancel := g.bound(ctx)
			defer cancel()
			out[i] = joinAction(c, resolver, it.kind, it.target)
		}()
	}
	wg.Wait()
	return out
}

func joinAction(ctx context.Context, resolver gateway.ChatResolver, kind entity.GateKind, target string) JoinAction {
	fallback := JoinAction{Label: "Join Channel", URL: "https://t.me/" + target}
	if kind == entity.GateGroup {
		fallback.Label = "Join Group"
	}
	if resolver == nil {
		return fallback
	}
	info, err := resolver.ResolveChat(ctx, target)
	if err != nil {
		return fallback
	}
	a := fallback
	if info.Title != "" {
		a.Label = "Join " + info.Title
	}
	switch {
	case info.Username != "":
		a.URL = "https://t.me/" + info.Username
	case info.InviteLink != "":
		a.URL = info.InviteLink
	}
	return a
}
