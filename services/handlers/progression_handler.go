package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fitquest-app/fitquest_api/shared"
)

type ProgressionHandler struct {
	progressionSvc ProgressionServiceInterface
}

func NewProgressionHandler(progressionSvc ProgressionServiceInterface) *ProgressionHandler {
	return &ProgressionHandler{progressionSvc: progressionSvc}
}

// @Summary Get user stats
// @Description XP, coins, level, streaks and completion counters for the current user
// @Tags progression
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.StatsResponse}
// @Router /api/v1/user/stats [get]
func (h *ProgressionHandler) GetStats(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.progressionSvc.GetUserStats(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Get badge collection
// @Description All active badges with earned state for the current user
// @Tags progression
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.BadgeCollectionResponse}
// @Router /api/v1/user/badges [get]
func (h *ProgressionHandler) GetBadges(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.progressionSvc.GetUserBadgeCollection(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Get reward history
// @Description Paginated append-only ledger of XP, coin, badge and level-up events
// @Tags progression
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} shared.Response{data=dto.RewardHistoryResponse}
// @Router /api/v1/user/rewards [get]
func (h *ProgressionHandler) GetRewardHistory(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	resp, err := h.progressionSvc.GetRewardHistory(userID, page, limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Get leaderboard
// @Description Top users by XP plus the current user's rank
// @Tags progression
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Number of top users" default(10)
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard [get]
func (h *ProgressionHandler) GetLeaderboard(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	resp, err := h.progressionSvc.GetLeaderboard(limit, userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}
