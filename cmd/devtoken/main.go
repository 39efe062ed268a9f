// Команда devtoken выпускает bearer токен для локальной проверки API:
//
//	go run ./cmd/devtoken -user user-1
package main

import (
	"flag"
	"fmt"

	"github.com/UkralStul/geoposts-service/internal/auth"
	"github.com/UkralStul/geoposts-service/internal/config"
	"github.com/UkralStul/geoposts-service/internal/logging"
)

func main() {
	userID := flag.String("user", "user-1", "User id to put into the token subject")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	manager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create token manager")
	}

	token, err := manager.GenerateToken(*userID)
	if err != nil {
		logging.Fatal().Err(err).Str("user_id", *userID).Msg("failed to generate token")
	}
	fmt.Println(token)
}
