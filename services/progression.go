package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fitquest-app/fitquest_api/dto"
	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProgressionService owns per-user XP/coins/level/streak state and badge
// eligibility. All reward mutations for a user run inside the caller's
// transaction so a completion is all-or-nothing.
type ProgressionService struct {
	appContext.DefaultService

	sqlSvc   *PostgresService
	redisSvc *RedisService

	streakMilestones []int
}

const PROGRESSION_SVC = "progression_svc"

const statsCacheTTL = 30 * time.Second

func (svc ProgressionService) Id() string {
	return PROGRESSION_SVC
}

func (svc *ProgressionService) Configure(ctx *appContext.Context) error {
	svc.streakMilestones = parseStreakMilestones(os.Getenv("STREAK_MILESTONES"))
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProgressionService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc, _ = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// Milestone thresholds are a policy, not a rule of the engine. Defaults
// apply when the env var is unset or unparseable.
func parseStreakMilestones(raw string) []int {
	defaults := []int{3, 7, 14, 30, 100}
	if raw == "" {
		return defaults
	}

	var milestones []int
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v <= 0 {
			log.WithField("milestones", raw).Warn("Invalid STREAK_MILESTONES value, using defaults")
			return defaults
		}
		milestones = append(milestones, v)
	}
	return milestones
}

// ==================== LEVEL MATH ====================

// XPForLevel returns the total XP required to reach level n. The cost of
// going from level n to n+1 is 100n + 50, so the gap grows by 100 XP per
// level and the total collapses to 50(n^2 - 1).
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return 50 * (level*level - 1)
}

// LevelFromXP inverts XPForLevel. The float estimate is corrected by an
// integer walk so rounding can never produce a non-monotonic result.
func LevelFromXP(xp int) int {
	if xp < 0 {
		return 1
	}

	level := int(math.Sqrt(float64(xp)/50.0 + 1))
	if level < 1 {
		level = 1
	}
	for XPForLevel(level+1) <= xp {
		level++
	}
	for level > 1 && XPForLevel(level) > xp {
		level--
	}
	return level
}

// ==================== REWARD APPLICATION ====================

type RewardResult struct {
	NewXP     int
	NewCoins  int
	NewLevel  int
	LeveledUp bool
}

// ApplyRewards adds xpDelta/coinsDelta to the progress row and recomputes
// the level. The stored level never decreases, which protects users who
// levelled under an older, more expensive formula. Ledger entries for the
// XP and coin awards plus any level-up are appended in the same tx.
func (svc *ProgressionService) ApplyRewards(tx *gorm.DB, progress *model.UserProgress, xpDelta, coinsDelta int, sourceID string) (*RewardResult, error) {
	if xpDelta < 0 || coinsDelta < 0 {
		return nil, shared.NewBadRequestError(fmt.Errorf("negative reward delta"), "Rewards must be non-negative")
	}

	oldLevel := progress.Level
	if oldLevel < 1 {
		oldLevel = 1
	}

	progress.XP += xpDelta
	progress.Coins += coinsDelta

	candidate := LevelFromXP(progress.XP)
	newLevel := oldLevel
	if candidate > newLevel {
		newLevel = candidate
	}
	progress.Level = newLevel

	if xpDelta > 0 {
		if err := svc.appendHistory(tx, progress.UserID, model.RewardXP, xpDelta, "challenge", sourceID,
			fmt.Sprintf("Earned %d XP", xpDelta)); err != nil {
			return nil, err
		}
	}
	if coinsDelta > 0 {
		if err := svc.appendHistory(tx, progress.UserID, model.RewardCoins, coinsDelta, "challenge", sourceID,
			fmt.Sprintf("Earned %d coins", coinsDelta)); err != nil {
			return nil, err
		}
	}

	leveledUp := newLevel > oldLevel
	if leveledUp {
		if err := svc.appendHistory(tx, progress.UserID, model.RewardLevelUp, newLevel, "level", "",
			fmt.Sprintf("Reached level %d", newLevel)); err != nil {
			return nil, err
		}
	}

	return &RewardResult{
		NewXP:     progress.XP,
		NewCoins:  progress.Coins,
		NewLevel:  newLevel,
		LeveledUp: leveledUp,
	}, nil
}

func (svc *ProgressionService) appendHistory(tx *gorm.DB, userID string, rewardType model.RewardType, amount int, sourceType, sourceID, description string) error {
	id, _ := uuid.NewV7()
	return tx.Create(&model.RewardHistory{
		ID:          id.String(),
		UserID:      userID,
		Type:        rewardType,
		Amount:      amount,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Description: description,
		CreatedAt:   time.Now(),
	}).Error
}

// ==================== STREAKS ====================

type StreakResult struct {
	CurrentStreak int
	LongestStreak int
	Changed       bool
	Milestone     int // 0 unless the new streak crossed a milestone
}

// UpdateStreak advances the streak for activity on the given day. A
// second update on the same calendar day is a no-op and the caller skips
// the persistence write.
func (svc *ProgressionService) UpdateStreak(progress *model.UserProgress, now time.Time) StreakResult {
	today := truncateToDay(now)

	if progress.LastActiveDate == nil {
		progress.CurrentStreak = 1
	} else {
		lastActive := truncateToDay(*progress.LastActiveDate)
		daysDiff := int(today.Sub(lastActive).Hours() / 24)

		switch daysDiff {
		case 0:
			return StreakResult{
				CurrentStreak: progress.CurrentStreak,
				LongestStreak: progress.LongestStreak,
				Changed:       false,
			}
		case 1:
			progress.CurrentStreak++
		default:
			progress.CurrentStreak = 1
		}
	}

	if progress.CurrentStreak > progress.LongestStreak {
		progress.LongestStreak = progress.CurrentStreak
	}
	progress.LastActiveDate = &now

	milestone := 0
	for _, m := range svc.streakMilestones {
		if progress.CurrentStreak == m {
			milestone = m
			break
		}
	}

	return StreakResult{
		CurrentStreak: progress.CurrentStreak,
		LongestStreak: progress.LongestStreak,
		Changed:       true,
		Milestone:     milestone,
	}
}

// truncateToDay maps t onto its calendar day as a UTC midnight. Anchoring
// in UTC keeps day differences exact multiples of 24h across DST shifts.
func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ==================== BADGES ====================

// badgeCategoryTargets maps category-master badge names onto the category
// they count. Unmapped names never award.
var badgeCategoryTargets = map[string]string{
	"Iron Body":     shared.CategoryFitness,
	"Calm Mind":     shared.CategoryMindfulness,
	"Clean Plate":   shared.CategoryNutrition,
	"Social Animal": shared.CategorySocial,
	"Pathfinder":    shared.CategoryExploration,
}

// EvaluateBadges awards every active badge the user now qualifies for but
// does not yet own. Awarding is append-only; owned badges are never
// re-evaluated. Runs inside the caller's transaction.
func (svc *ProgressionService) EvaluateBadges(tx *gorm.DB, progress *model.UserProgress) ([]model.Badge, error) {
	var badges []model.Badge
	if err := tx.Where("is_active = ?", true).Find(&badges).Error; err != nil {
		return nil, err
	}

	owned := map[string]bool{}
	var ownedRows []model.UserBadge
	if err := tx.Where("user_id = ?", progress.UserID).Find(&ownedRows).Error; err != nil {
		return nil, err
	}
	for _, ub := range ownedRows {
		owned[ub.BadgeID] = true
	}

	var completedCount int64
	if err := tx.Model(&model.UserChallenge{}).
		Where("user_id = ? AND status = ?", progress.UserID, model.StatusCompleted).
		Count(&completedCount).Error; err != nil {
		return nil, err
	}

	var awarded []model.Badge
	for _, badge := range badges {
		if owned[badge.ID] {
			continue
		}

		qualifies, err := svc.badgeQualifies(tx, &badge, progress, completedCount)
		if err != nil {
			return nil, err
		}
		if !qualifies {
			continue
		}

		id, _ := uuid.NewV7()
		if err := tx.Create(&model.UserBadge{
			ID:       id.String(),
			UserID:   progress.UserID,
			BadgeID:  badge.ID,
			EarnedAt: time.Now(),
		}).Error; err != nil {
			return nil, err
		}

		if err := svc.appendHistory(tx, progress.UserID, model.RewardBadge, 1, "badge", badge.ID,
			fmt.Sprintf("Earned badge %q", badge.Name)); err != nil {
			return nil, err
		}

		awarded = append(awarded, badge)
	}

	return awarded, nil
}

func (svc *ProgressionService) badgeQualifies(tx *gorm.DB, badge *model.Badge, progress *model.UserProgress, completedCount int64) (bool, error) {
	switch badge.RequirementType {
	case model.BadgeChallengesCompleted:
		return completedCount >= int64(badge.RequirementValue), nil
	case model.BadgeStreakDays:
		return progress.CurrentStreak >= badge.RequirementValue, nil
	case model.BadgeLevelReached:
		return progress.Level >= badge.RequirementValue, nil
	case model.BadgeXPEarned:
		return progress.XP >= badge.RequirementValue, nil
	case model.BadgeCategoryMaster:
		category, ok := badgeCategoryTargets[badge.Name]
		if !ok {
			return false, nil
		}
		var count int64
		err := tx.Model(&model.UserChallenge{}).
			Joins("JOIN challenges ON challenges.id = user_challenges.challenge_id").
			Where("user_challenges.user_id = ? AND user_challenges.status = ? AND challenges.category = ?",
				progress.UserID, model.StatusCompleted, category).
			Count(&count).Error
		return count >= int64(badge.RequirementValue), err
	default:
		return false, nil
	}
}

// ==================== STATS / READS ====================

// EnsureUserProgress returns the user's progression row, creating it on
// first touch.
func (svc *ProgressionService) EnsureUserProgress(tx *gorm.DB, userID string) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := tx.Where("user_id = ?", userID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	id, _ := uuid.NewV7()
	now := time.Now()
	progress = model.UserProgress{
		ID:        id.String(),
		UserID:    userID,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (svc *ProgressionService) GetUserStats(userID string) (*dto.StatsResponse, error) {
	cacheKey := "stats:" + userID
	if svc.redisSvc != nil {
		var cached dto.StatsResponse
		if hit, err := svc.redisSvc.GetJSON(context.Background(), cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	progress, err := svc.EnsureUserProgress(svc.sqlSvc.Db(), userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get user stats")
	}

	completed, err := svc.sqlSvc.CountCompletedChallenges(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get user stats")
	}

	userBadges, err := svc.sqlSvc.GetUserBadges(userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to get user badges")
		userBadges = nil
	}

	stats := svc.buildStats(progress, int(completed), len(userBadges))

	if svc.redisSvc != nil {
		if err := svc.redisSvc.SetJSON(context.Background(), cacheKey, stats, statsCacheTTL); err != nil {
			log.WithError(err).Debug("Failed to cache user stats")
		}
	}

	return stats, nil
}

func (svc *ProgressionService) buildStats(progress *model.UserProgress, completed, badgeCount int) *dto.StatsResponse {
	return &dto.StatsResponse{
		UserID:              progress.UserID,
		XP:                  progress.XP,
		Coins:               progress.Coins,
		Level:               progress.Level,
		XPToNextLevel:       XPForLevel(progress.Level+1) - progress.XP,
		CurrentStreak:       progress.CurrentStreak,
		LongestStreak:       progress.LongestStreak,
		ChallengesCompleted: completed,
		BadgeCount:          badgeCount,
	}
}

// InvalidateStatsCache drops the cached snapshot after a mutation.
func (svc *ProgressionService) InvalidateStatsCache(userID string) {
	if svc.redisSvc == nil {
		return
	}
	if err := svc.redisSvc.Delete(context.Background(), "stats:"+userID); err != nil {
		log.WithError(err).Debug("Failed to invalidate stats cache")
	}
}

func (svc *ProgressionService) GetUserBadgeCollection(userID string) (*dto.BadgeCollectionResponse, error) {
	earned, err := svc.sqlSvc.GetUserBadges(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get badges")
	}

	all, err := svc.sqlSvc.GetActiveBadges()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get badges")
	}

	earnedAt := map[string]time.Time{}
	for _, ub := range earned {
		earnedAt[ub.BadgeID] = ub.EarnedAt
	}

	responses := make([]dto.BadgeResponse, len(all))
	for i, badge := range all {
		responses[i] = badgeResponse(&badge, nil)
		if at, ok := earnedAt[badge.ID]; ok {
			t := at
			responses[i].EarnedAt = &t
		}
	}

	return &dto.BadgeCollectionResponse{
		Badges: responses,
		Total:  len(all),
		Earned: len(earned),
	}, nil
}

func badgeResponse(badge *model.Badge, earnedAt *time.Time) dto.BadgeResponse {
	return dto.BadgeResponse{
		ID:               badge.ID,
		Name:             badge.Name,
		Description:      badge.Description,
		IconURL:          badge.IconURL,
		Rarity:           badge.Rarity,
		RequirementType:  string(badge.RequirementType),
		RequirementValue: badge.RequirementValue,
		EarnedAt:         earnedAt,
	}
}

func (svc *ProgressionService) GetRewardHistory(userID string, page, limit int) (*dto.RewardHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := svc.sqlSvc.GetRewardHistory(userID, page, limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get reward history")
	}

	responses := make([]dto.RewardEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = dto.RewardEntryResponse{
			ID:          entry.ID,
			Type:        string(entry.Type),
			Amount:      entry.Amount,
			SourceType:  entry.SourceType,
			SourceID:    entry.SourceID,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		}
	}

	return &dto.RewardHistoryResponse{
		Entries: responses,
		Total:   int(total),
		Page:    page,
		Limit:   limit,
	}, nil
}

func (svc *ProgressionService) GetLeaderboard(limit int, currentUserID string) (*dto.LeaderboardResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 25
	}

	rows, err := svc.sqlSvc.GetTopUsersByXP(limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to get leaderboard")
	}

	topUsers := make([]dto.LeaderboardUserResponse, 0, len(rows))
	var currentUser dto.LeaderboardUserResponse

	for i, row := range rows {
		user, err := svc.sqlSvc.GetUserByID(row.UserID)
		if err != nil {
			log.WithError(err).WithField("user_id", row.UserID).Warn("Leaderboard user lookup failed")
			continue
		}

		entry := dto.LeaderboardUserResponse{
			UserID:   row.UserID,
			Username: user.Username,
			Level:    row.Level,
			XP:       row.XP,
			Rank:     i + 1,
		}
		topUsers = append(topUsers, entry)

		if row.UserID == currentUserID {
			currentUser = entry
		}
	}

	if currentUserID != "" && currentUser.UserID == "" {
		rank, err := svc.sqlSvc.GetUserRank(currentUserID)
		if err == nil {
			if progress, err := svc.sqlSvc.GetUserProgress(currentUserID); err == nil {
				if user, err := svc.sqlSvc.GetUserByID(currentUserID); err == nil {
					currentUser = dto.LeaderboardUserResponse{
						UserID:   currentUserID,
						Username: user.Username,
						Level:    progress.Level,
						XP:       progress.XP,
						Rank:     rank,
					}
				}
			}
		}
	}

	return &dto.LeaderboardResponse{
		CurrentUser: currentUser,
		TopUsers:    topUsers,
	}, nil
}
