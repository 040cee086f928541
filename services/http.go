package services

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/fitquest-app/fitquest_api/docs"
	"github.com/fitquest-app/fitquest_api/services/handlers"
	"github.com/fitquest-app/fitquest_api/shared"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"
)

type HttpService struct {
	context.DefaultService

	authSvc        *AuthService
	challengeSvc   *ChallengeService
	progressionSvc *ProgressionService
	mediaSvc       *MediaService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.challengeSvc = svc.Service(CHALLENGE_SVC).(*ChallengeService)
	svc.progressionSvc = svc.Service(PROGRESSION_SVC).(*ProgressionService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)

	docs.SwaggerInfo.BasePath = ""

	app := fiber.New(fiber.Config{
		ErrorHandler: svc.errorHandler,
		BodyLimit:    12 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(MonitoringMiddleware())

	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	authHandler := handlers.NewAuthHandler(svc.authSvc)
	challengeHandler := handlers.NewChallengeHandler(svc.challengeSvc, svc.mediaSvc)
	progressionHandler := handlers.NewProgressionHandler(svc.progressionSvc)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	v1.Post("/register", authHandler.Register)
	v1.Post("/login", authHandler.Login)

	protected := v1.Group("", svc.authSvc.RequiredAuth())
	protected.Post("/challenges/daily", challengeHandler.AssignDaily)
	protected.Post("/challenges/:userChallengeId/complete", challengeHandler.Complete)
	protected.Put("/challenges/:userChallengeId/progress", challengeHandler.UpdateProgress)
	protected.Get("/user/stats", progressionHandler.GetStats)
	protected.Get("/user/badges", progressionHandler.GetBadges)
	protected.Get("/user/rewards", progressionHandler.GetRewardHistory)
	protected.Get("/leaderboard", progressionHandler.GetLeaderboard)

	svc.server = app

	log.Info().Int("port", svc.port).Msg("HTTP server started")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	if fiberErr, isFiber := err.(*fiber.Error); isFiber {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return shared.ResponseJSON(c, http.StatusInternalServerError, "Internal Server Error", nil)
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}
