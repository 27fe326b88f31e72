package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tienlen/internal/app"
	"tienlen/internal/config"
	"tienlen/internal/domain"
	"tienlen/internal/room"
	"tienlen/internal/server"
	"tienlen/internal/storage"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := config.LoadGameConfig(getEnv("GAME_CONFIG", "data/game_config.json")); err != nil {
		log.Warn().Err(err).Msg("game config not loaded, using defaults")
	}

	store, err := storage.New(getEnv("DB_PATH", "tienlen.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	svc := app.NewService(nil)
	rooms := room.NewRegistry(app.MaxPlayersPerTable, func(seats []domain.PlayerSeat) *domain.Game {
		return svc.NewTable(seats, config.GetBaseBet(""))
	})

	var invites *app.InviteService
	if secret := os.Getenv("INVITE_SECRET"); secret != "" {
		ttl := 15 * time.Minute
		if d, err := time.ParseDuration(getEnv("INVITE_TTL", "")); err == nil && d > 0 {
			ttl = d
		}
		invites = app.NewInviteService(secret, getEnv("INVITE_ISSUER", "tienlen"), ttl)
	}

	srv := server.New(svc, rooms, store, invites)

	addr := ":" + getEnv("PORT", "8080")
	log.Info().Str("addr", addr).Msg("starting tienlen devserver")
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
