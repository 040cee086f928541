package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fitquest-app/fitquest_api/dto"
	"github.com/fitquest-app/fitquest_api/shared"
)

type ChallengeHandler struct {
	challengeSvc ChallengeServiceInterface
	mediaSvc     MediaServiceInterface
}

func NewChallengeHandler(challengeSvc ChallengeServiceInterface, mediaSvc MediaServiceInterface) *ChallengeHandler {
	return &ChallengeHandler{
		challengeSvc: challengeSvc,
		mediaSvc:     mediaSvc,
	}
}

// @Summary Assign daily challenges
// @Description Return today's challenge set for the user, creating it on the first call of the day
// @Tags challenges
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.DailyChallengesResponse}
// @Router /api/v1/challenges/daily [post]
func (h *ChallengeHandler) AssignDaily(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.challengeSvc.AssignDaily(userID, time.Now())
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Daily challenges ready", resp)
}

// @Summary Complete a challenge
// @Description Mark a challenge completed and apply XP, coins, streak and badge rewards
// @Tags challenges
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param userChallengeId path string true "User challenge ID"
// @Param photo formData file false "Proof photo, required for photo challenges"
// @Param caption formData string false "Optional caption"
// @Success 200 {object} shared.Response{data=dto.CompletionResponse}
// @Router /api/v1/challenges/{userChallengeId}/complete [post]
func (h *ChallengeHandler) Complete(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	userChallengeID := c.Params("userChallengeId")

	caption := c.FormValue("caption")

	var photoURL string
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		url, err := h.mediaSvc.UploadChallengePhoto(userID, file)
		if err != nil {
			return err
		}
		photoURL = url
	}

	resp, err := h.challengeSvc.CompleteChallenge(userID, userChallengeID, photoURL, caption)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Challenge completed", resp)
}

// @Summary Update challenge progress
// @Description Record tracked progress towards an auto-tracked challenge target
// @Tags challenges
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param userChallengeId path string true "User challenge ID"
// @Param progressRequest body dto.UpdateProgressRequest true "Current tracked value"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/challenges/{userChallengeId}/progress [put]
func (h *ChallengeHandler) UpdateProgress(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	userChallengeID := c.Params("userChallengeId")

	var req dto.UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := dto.GetValidator().Struct(req); err != nil {
		return shared.NewBadRequestError(err, "Invalid progress request")
	}

	resp, err := h.challengeSvc.UpdateChallengeProgress(userID, userChallengeID, req.CurrentValue, req.SensorData)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Progress updated", resp)
}
