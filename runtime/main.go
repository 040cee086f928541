package main

import (
	"github.com/fitquest-app/fitquest_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file found, reading environment directly")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},
		&services.JWTService{},
		&services.AuthService{},
		&services.ProgressionService{},
		&services.NotificationService{},
		&services.ChallengeService{},
		&services.MediaService{},
		&services.MonitoringService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure services")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Runtime exited")
		return
	}
}
