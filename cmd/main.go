package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MjBots-creater/save-restricted-bot/config"
	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/container"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	repo "github.com/MjBots-creater/save-restricted-bot/internal/domain/repository"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/memory"
	pginfra "github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/postgres"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/redisstore"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/search"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/shortener"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/telegram"
	"github.com/MjBots-creater/save-restricted-bot/internal/interface/bot"
	"github.com/MjBots-creater/save-restricted-bot/internal/interface/middleware"
	"github.com/MjBots-creater/save-restricted-bot/internal/router"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
	"github.com/MjBots-creater/save-restricted-bot/pkg/validation"
)

const (
	handleTimeout   = time.Minute
	broadcastBudget = 30 * time.Minute
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	userRepo, gateRepo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	// Redis: runtime settings and per-user rate limit
	var (
		rdb           *redis.Client
		settingsStore application.SettingsStore
		limiter       *helpers.RedisLimiter
	)
	if cfg.RedisEnabled {
		rdb = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			helpers.LogWarn(logger, "redis unreachable; settings will not persist and rate limits fail open", err, nil)
		}
		settingsStore = redisstore.NewSettingsStore(rdb)
		limiter = helpers.NewRedisLimiter(rdb, cfg.UserRateLimit, cfg.UserRateWindow)
	}

	// Telegram; long polls hold the connection for PollTimeout
	tg, err := telegram.New(cfg.TelegramToken, cfg.PollTimeout+cfg.TransportTimeout, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to authorize with telegram")
	}

	settings := application.NewSettings(cfg.OwnerID, cfg.VerificationWindow(),
		application.ShortenerSettings{URL: cfg.ShortenerAPIURL, Key: cfg.ShortenerAPIKey}, settingsStore, logger)
	settings.Restore(ctx)

	gates := application.NewGateList(gateRepo, logger)
	if err := gates.Load(ctx); err != nil {
		logger.WithError(err).Fatal("failed to load gate list")
	}

	// Elasticsearch user directory
	var indexer application.UserIndexer
	if cfg.ElasticsearchEnabled {
		es, err := search.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		idx := search.NewUserIndex(es, cfg.ESUsersIndex)
		indexer = idx
		container.SetES(es)
		container.SetUserIndex(idx)
	}

	// RabbitMQ broadcast queue
	var publisher application.JobPublisher
	if cfg.BroadcastQueueEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQBroadcastQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer pub.Close()
		publisher = pub
		container.SetRabbitPub(pub)
	}

	var jwtManager *helpers.JWTManager
	if cfg.AdminAPIEnabled {
		jwtManager = helpers.NewJWTManager(cfg.JWTAdminSecret, cfg.AdminTokenTTL)
	}

	users := application.NewService(userRepo, indexer, logger)
	dispatcher := &bot.Dispatcher{
		Users:     users,
		Ledger:    application.NewLedger(userRepo, settings, shortener.New(cfg.TransportTimeout), tg.Username(), logger),
		Gate:      application.NewAccessGate(gates, tg, settings, cfg.GateRetryOnce, cfg.GateCheckConcurrency, cfg.TransportTimeout, logger),
		Gates:     gates,
		Forwarder: application.NewForwarder(tg, cfg.TransportTimeout, logger),
		Broadcast: application.NewBroadcastService(userRepo, tg, publisher, cfg.TransportTimeout, logger),
		Settings:  settings,
		Messenger: tg,
		Resolver:  tg,
		Limiter:   limiter,
		Tokens:    jwtManager,
		Logger:    logger,

		ReplyTimeout:    cfg.TransportTimeout,
		BroadcastBudget: broadcastBudget,
	}
	dispatcher.Init()
	if err := tg.SetCommands(ctx, dispatcher.Menu()); err != nil {
		helpers.LogWarn(logger, "set command menu failed", err, nil)
	}
	runner := &bot.Runner{
		API:           tg.API,
		Dispatcher:    dispatcher,
		PollTimeout:   cfg.PollTimeout,
		HandleTimeout: handleTimeout,
		Logger:        logger,
	}

	// Provide singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetRunner(runner)
	container.SetGates(gates)
	container.SetSettings(settings)
	container.SetUserService(users)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: cfg.ListenAddr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.WithField("addr", cfg.ListenAddr()).Info("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen failed")
		}
	}()

	if cfg.UseWebhook() {
		hook := strings.TrimRight(cfg.WebhookURL, "/") + cfg.WebhookPath
		if err := tg.SetWebhook(ctx, hook); err != nil {
			logger.WithError(err).Fatal("failed to register webhook")
		}
		logger.WithField("path", cfg.WebhookPath).Info("webhook mode")
		<-ctx.Done()
	} else {
		if err := tg.SetWebhook(ctx, ""); err != nil {
			helpers.LogWarn(logger, "delete webhook failed", err, nil)
		}
		runner.Poll(ctx)
	}

	// Graceful shutdown
	logger.Info("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		helpers.LogError(logger, "server forced to shutdown", err, nil)
	}
	runner.Wait()
	logger.Info("bot exited properly")
}

// openStore returns the repositories for STORE_DRIVER and a close func.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repo.UserRepository, repo.GateRepository, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("memory store selected; data is lost on restart")
		return memory.NewUserRepository(), memory.NewGateRepository(entity.GateSet{}), func() {}, nil
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	container.SetPGPool(pool)
	return pginfra.NewUserRepository(pool), pginfra.NewGateRepository(pool), pool.Close, nil
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
