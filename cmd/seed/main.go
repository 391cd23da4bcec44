package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/MjBots-creater/save-restricted-bot/config"
	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	pginfra "github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/postgres"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// seed grants or revokes premium for a user:
//
//	seed -user 123456789 -premium=true
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	userID := flag.Int64("user", 0, "telegram user id")
	premium := flag.Bool("premium", true, "premium flag to set")
	flag.Parse()
	if *userID <= 0 {
		log.Fatal("-user must be a positive telegram user id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	svc := application.NewService(pginfra.NewUserRepository(pool), nil, logger)
	if err := svc.Ensure(ctx, *userID, ""); err != nil {
		log.Fatalf("failed to ensure user: %v", err)
	}
	if err := svc.SetPremium(ctx, *userID, *premium); err != nil {
		log.Fatalf("failed to set premium: %v", err)
	}
	fmt.Printf("user %d premium=%t\n", *userID, *premium)
}
