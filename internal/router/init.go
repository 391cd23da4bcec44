package router

import (
	"context"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/container"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/search"
	handlers "github.com/MjBots-creater/save-restricted-bot/internal/interface/http"
	"github.com/MjBots-creater/save-restricted-bot/internal/router/modules"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// InitModules wires the HTTP modules from the container. It must run
// after every singleton has been set.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var webhook *handlers.WebhookHandler
	path := ""
	if cfg.UseWebhook() {
		webhook = handlers.NewWebhookHandler(container.GetRunner(), logger)
		path = cfg.WebhookPath
	}
	ready := handlers.NewReadyHandler(readyChecks(), 2*time.Second, logger)
	r.AddRoot(modules.NewWebhookModule(webhook, path, ready))

	if cfg.DebugMetricsEnabled {
		r.AddRoot(modules.NewDebugModule(helpers.NewRedisLimiter(container.GetRedis(), 120, time.Minute)))
	}

	if cfg.AdminAPIEnabled && container.GetJWT() != nil {
		var searcher handlers.UserSearcher
		if idx := container.GetUserIndex(); idx != nil {
			searcher = idx
		}
		h := handlers.NewAdminHandler(container.GetGates(), container.GetSettings(), container.GetUserService(), searcher, logger)
		r.Add(modules.NewAdminModule(h, container.GetJWT(), cfg.OwnerID, helpers.NewRedisLimiter(container.GetRedis(), 120, time.Minute)))
	}
}

// readyChecks pings whichever backing services this process was started
// with.
func readyChecks() []handlers.ReadyCheck {
	var checks []handlers.ReadyCheck
	if pool := container.GetPGPool(); pool != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "postgres", Ping: pool.Ping})
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if es := container.GetES(); es != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "elasticsearch", Ping: func(ctx context.Context) error {
			return search.Ping(ctx, es)
		}})
	}
	if pub := container.GetRabbitPub(); pub != nil {
		checks = append(checks, handlers.ReadyCheck{Name: "rabbitmq", Ping: pub.Ping})
	}
	return checks
}
