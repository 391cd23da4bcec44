package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/config"
	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/search"
	"github.com/MjBots-creater/save-restricted-bot/internal/interface/bot"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	jwtManager *helpers.JWTManager
	rabbitPub  *helpers.RabbitPublisher
	esClient   *elasticsearch.Client
	userIndex  *search.UserIndex

	runner   *bot.Runner
	gates    *application.GateList
	settings *application.Settings
	users    *application.Service
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }

// GetJWT returns nil when the admin API is disabled.
func GetJWT() *helpers.JWTManager { return jwtManager }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
func SetUserIndex(x *search.UserIndex)        { userIndex = x }
func GetUserIndex() *search.UserIndex         { return userIndex }

func SetRunner(r *bot.Runner)               { runner = r }
func GetRunner() *bot.Runner                { return runner }
func SetGates(g *application.GateList)      { gates = g }
func GetGates() *application.GateList       { return gates }
func SetSettings(s *application.Settings)   { settings = s }
func GetSettings() *application.Settings    { return settings }
func SetUserService(s *application.Service) { users = s }
func GetUserService() *application.Service  { return users }
