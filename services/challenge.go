package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fitquest-app/fitquest_api/dto"
	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ChallengeService orchestrates daily assignment, progress updates and
// the transactional completion flow that feeds the progression engine.
type ChallengeService struct {
	appContext.DefaultService

	sqlSvc          *PostgresService
	redisSvc        *RedisService
	progressionSvc  *ProgressionService
	notificationSvc *NotificationService

	dailyCount int

	// Completions for the same user serialize here so XP/coins/streak
	// updates never race each other.
	userLocks sync.Map

	completions chan completionEvent
	stop        chan struct{}
	done        sync.WaitGroup
}

type completionEvent struct {
	userID      string
	completedAt time.Time
}

const CHALLENGE_SVC = "challenge_svc"

func (svc ChallengeService) Id() string {
	return CHALLENGE_SVC
}

func (svc *ChallengeService) Configure(ctx *appContext.Context) error {
	svc.dailyCount = 5
	if raw := os.Getenv("DAILY_CHALLENGE_COUNT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			svc.dailyCount = n
		}
	}

	svc.completions = make(chan completionEvent, 64)
	svc.stop = make(chan struct{})

	return svc.DefaultService.Configure(ctx)
}

func (svc *ChallengeService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc, _ = svc.Service(REDIS_SVC).(*RedisService)
	svc.progressionSvc = svc.Service(PROGRESSION_SVC).(*ProgressionService)
	svc.notificationSvc, _ = svc.Service(NOTIFICATION_SVC).(*NotificationService)

	svc.done.Add(1)
	go svc.metaVerifyLoop()

	return nil
}

func (svc *ChallengeService) Shutdown() {
	close(svc.stop)
	svc.done.Wait()
}

func (svc *ChallengeService) lockUser(userID string) func() {
	muIface, _ := svc.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ==================== DAILY ASSIGNMENT ====================

// AssignDailyChallenges returns today's set for the user, creating it on
// first call of the day. Never double-assigns: a second call the same day
// returns the existing rows unchanged.
func (svc *ChallengeService) AssignDailyChallenges(userID string, now time.Time) ([]model.UserChallenge, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	existing, err := svc.sqlSvc.GetUserChallengesSince(userID, midnight)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load daily challenges")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	// Cross-instance guard. Without redis the per-process path still holds
	// because losers re-read and return the winner's rows.
	lockKey := fmt.Sprintf("daily_assign:%s:%s", userID, midnight.Format("2006-01-02"))
	if svc.redisSvc != nil {
		acquired, err := svc.redisSvc.AcquireLock(context.Background(), lockKey, 30*time.Second)
		if err != nil {
			log.WithError(err).Warn("Daily assignment lock unavailable, proceeding without it")
		} else if !acquired {
			return svc.sqlSvc.GetUserChallengesSince(userID, midnight)
		} else {
			defer func() {
				_ = svc.redisSvc.ReleaseLock(context.Background(), lockKey)
			}()
		}
	}

	catalog, err := svc.sqlSvc.GetActiveChallenges()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load challenge catalog")
	}
	if len(catalog) == 0 {
		return nil, shared.NewInternalError(errors.New("empty catalog"), "No active challenges available")
	}

	count := svc.dailyCount
	if count > len(catalog) {
		count = len(catalog)
	}

	// The set persists all-or-nothing. A partial set would survive the
	// existing-rows check above and shortchange the user for the day.
	assigned := make([]model.UserChallenge, 0, count)
	txErr := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		for _, idx := range rand.Perm(len(catalog))[:count] {
			challenge := catalog[idx]

			// Sensor-driven challenges need no manual start action.
			status := model.StatusPending
			if challenge.TrackingType.AutoTracked() {
				status = model.StatusInProgress
			}

			id, _ := uuid.NewV7()
			uc := model.UserChallenge{
				ID:          id.String(),
				UserID:      userID,
				ChallengeID: challenge.ID,
				Status:      status,
				AssignedAt:  now,
				CreatedAt:   now,
				UpdatedAt:   now,
				Challenge:   challenge,
			}

			if err := tx.Create(&uc).Error; err != nil {
				return err
			}
			assigned = append(assigned, uc)
		}
		return nil
	})
	if txErr != nil {
		return nil, shared.NewInternalError(txErr, "Failed to assign daily challenges")
	}

	log.WithFields(log.Fields{"user_id": userID, "count": len(assigned)}).Info("Assigned daily challenges")
	return assigned, nil
}

// AssignDaily is the response-shaped variant used by the HTTP layer.
func (svc *ChallengeService) AssignDaily(userID string, now time.Time) (*dto.DailyChallengesResponse, error) {
	ucs, err := svc.AssignDailyChallenges(userID, now)
	if err != nil {
		return nil, err
	}
	return DailyChallengesResponse(now, ucs), nil
}

// ==================== COMPLETION ====================

// CompleteChallenge marks the challenge completed and applies all rewards
// as one transaction: status flip, XP/coins, streak, badge sweep, ledger.
// Concurrent attempts on the same row let at most one through.
func (svc *ChallengeService) CompleteChallenge(userID, userChallengeID, photoURL, caption string) (*dto.CompletionResponse, error) {
	return svc.completeChallengeAt(userID, userChallengeID, photoURL, caption, time.Now(), true)
}

func (svc *ChallengeService) completeChallengeAt(userID, userChallengeID, photoURL, caption string, now time.Time, notify bool) (*dto.CompletionResponse, error) {
	unlock := svc.lockUser(userID)
	defer unlock()

	var (
		uc        *model.UserChallenge
		stats     *dto.StatsResponse
		rewards   *RewardResult
		streak    StreakResult
		newBadges []model.Badge
		isMeta    bool
	)

	err := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		var row model.UserChallenge
		// Precondition check and mutation share the transaction, so a
		// concurrent attempt sees COMPLETED and fails the check.
		if err := tx.Preload("Challenge").Where("id = ?", userChallengeID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewNotFoundError(err, "Challenge not found")
			}
			return shared.NewInternalError(err, "Failed to load challenge")
		}
		if row.UserID != userID {
			return shared.NewNotFoundError(errors.New("ownership mismatch"), "Challenge not found")
		}
		if row.Status == model.StatusCompleted {
			return shared.NewConflictError(errors.New("already completed"), "Challenge already completed")
		}
		if row.Challenge.RequiresPhoto && photoURL == "" {
			return shared.NewBadRequestError(errors.New("photo missing"), "This challenge requires a photo")
		}

		isMeta = row.Challenge.IsMeta()

		row.Status = model.StatusCompleted
		row.Progress = 100
		row.CompletedAt = &now
		row.PhotoURL = photoURL
		row.Caption = caption
		row.UpdatedAt = now
		if err := tx.Save(&row).Error; err != nil {
			return shared.NewInternalError(err, "Failed to complete challenge")
		}

		progress, err := svc.progressionSvc.EnsureUserProgress(tx, userID)
		if err != nil {
			return shared.NewInternalError(err, "Failed to load progression")
		}

		rewards, err = svc.progressionSvc.ApplyRewards(tx, progress, row.Challenge.XPReward, row.Challenge.CoinsReward, row.ID)
		if err != nil {
			return err
		}

		streak = svc.progressionSvc.UpdateStreak(progress, now)

		progress.UpdatedAt = now
		if err := tx.Save(progress).Error; err != nil {
			return shared.NewInternalError(err, "Failed to persist progression")
		}

		newBadges, err = svc.progressionSvc.EvaluateBadges(tx, progress)
		if err != nil {
			return shared.NewInternalError(err, "Failed to evaluate badges")
		}

		var completed int64
		if err := tx.Model(&model.UserChallenge{}).
			Where("user_id = ? AND status = ?", userID, model.StatusCompleted).
			Count(&completed).Error; err != nil {
			return shared.NewInternalError(err, "Failed to count completions")
		}

		var badgeCount int64
		if err := tx.Model(&model.UserBadge{}).Where("user_id = ?", userID).Count(&badgeCount).Error; err != nil {
			return shared.NewInternalError(err, "Failed to count badges")
		}

		uc = &row
		stats = svc.progressionSvc.buildStats(progress, int(completed), int(badgeCount))
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.progressionSvc.InvalidateStatsCache(userID)
	RecordChallengeCompleted(uc.Challenge.Category)
	if rewards.LeveledUp {
		RecordLevelUp()
	}
	RecordBadgesAwarded(len(newBadges))

	if notify && svc.notificationSvc != nil {
		if rewards.LeveledUp {
			svc.notificationSvc.QueueLevelUp(userID, rewards.NewLevel)
		}
		if streak.Milestone > 0 {
			svc.notificationSvc.QueueStreakMilestone(userID, streak.Milestone)
		}
		for _, badge := range newBadges {
			svc.notificationSvc.QueueBadgeEarned(userID, badge)
		}
	}

	// Meta verification is fire-and-forget: it never blocks or fails the
	// primary completion.
	if !isMeta {
		select {
		case svc.completions <- completionEvent{userID: userID, completedAt: now}:
		default:
			log.WithField("user_id", userID).Warn("Meta verification queue full, skipping check")
		}
	}

	badgeResponses := make([]dto.BadgeResponse, len(newBadges))
	for i := range newBadges {
		badgeResponses[i] = badgeResponse(&newBadges[i], nil)
	}

	resp := &dto.CompletionResponse{
		Challenge: userChallengeResponse(uc),
		Stats:     *stats,
		LeveledUp: rewards.LeveledUp,
		NewBadges: badgeResponses,
	}
	if rewards.LeveledUp {
		resp.NewLevel = rewards.NewLevel
	}
	return resp, nil
}

// ==================== PROGRESS UPDATES ====================

// UpdateChallengeProgress records a sensor or manual progress value. The
// percentage is capped at 99: only the completion path may reach 100.
// Updates arriving after completion are skipped, not errors. Shares the
// per-user lock and a transaction with the completion path so a stale
// update can never overwrite a finished row.
func (svc *ChallengeService) UpdateChallengeProgress(userID, userChallengeID string, currentValue float64, sensorData json.RawMessage) (*dto.ProgressResponse, error) {
	if currentValue < 0 {
		return nil, shared.NewBadRequestError(errors.New("negative progress"), "Progress value must be non-negative")
	}

	unlock := svc.lockUser(userID)
	defer unlock()

	var resp *dto.ProgressResponse
	err := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		var uc model.UserChallenge
		if err := tx.Preload("Challenge").Where("id = ?", userChallengeID).First(&uc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewNotFoundError(err, "Challenge not found")
			}
			return shared.NewInternalError(err, "Failed to load challenge")
		}
		if uc.UserID != userID {
			return shared.NewNotFoundError(errors.New("ownership mismatch"), "Challenge not found")
		}

		if uc.Status == model.StatusCompleted {
			resp = &dto.ProgressResponse{
				Skipped:  true,
				Progress: uc.Progress,
				Status:   string(uc.Status),
			}
			return nil
		}

		pct := 0
		if uc.Challenge.TargetValue > 0 {
			pct = int(math.Round(currentValue / uc.Challenge.TargetValue * 100))
			if pct > 99 {
				pct = 99
			}
		}

		uc.Progress = pct
		if uc.Status == model.StatusPending {
			uc.Status = model.StatusInProgress
		}

		switch uc.Challenge.TrackingType {
		case model.TrackingSteps:
			uc.Steps = int(currentValue)
		case model.TrackingDistance:
			uc.Distance = currentValue
		case model.TrackingDuration:
			uc.Duration = int(currentValue)
		}
		if len(sensorData) > 0 {
			uc.SensorData = sensorData
		}

		uc.UpdatedAt = time.Now()
		if err := tx.Save(&uc).Error; err != nil {
			return shared.NewInternalError(err, "Failed to update progress")
		}

		resp = &dto.ProgressResponse{
			Skipped:  false,
			Progress: uc.Progress,
			Status:   string(uc.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ==================== META VERIFICATION ====================

func (svc *ChallengeService) metaVerifyLoop() {
	defer svc.done.Done()
	for {
		select {
		case ev := <-svc.completions:
			if err := svc.verifyMetaChallenges(ev.userID, ev.completedAt); err != nil {
				log.WithError(err).WithField("user_id", ev.userID).Warn("Meta challenge verification failed")
			}
		case <-svc.stop:
			return
		}
	}
}

// verifyMetaChallenges completes any of today's auto-verifiable meta
// challenges whose threshold of regular completions has been reached.
func (svc *ChallengeService) verifyMetaChallenges(userID string, now time.Time) error {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	todays, err := svc.sqlSvc.GetUserChallengesSince(userID, midnight)
	if err != nil {
		return err
	}

	completedRegular := 0
	for _, uc := range todays {
		if uc.Status == model.StatusCompleted && !uc.Challenge.IsMeta() {
			completedRegular++
		}
	}

	for i := range todays {
		uc := &todays[i]
		if !uc.Challenge.IsMeta() || uc.Status == model.StatusCompleted {
			continue
		}
		if float64(completedRegular) < uc.Challenge.TargetValue {
			continue
		}

		if _, err := svc.completeChallengeAt(userID, uc.ID, "", "", now, true); err != nil {
			if appErr, ok := shared.GetAppError(err); ok && appErr.StatusCode == 409 {
				continue // lost a race with another verifier pass
			}
			return err
		}
		log.WithFields(log.Fields{"user_id": userID, "challenge": uc.Challenge.Title}).Info("Meta challenge auto-completed")
	}

	return nil
}

// ==================== DTO MAPPING ====================

func userChallengeResponse(uc *model.UserChallenge) dto.UserChallengeResponse {
	return dto.UserChallengeResponse{
		ID:          uc.ID,
		Status:      string(uc.Status),
		Progress:    uc.Progress,
		Steps:       uc.Steps,
		Distance:    uc.Distance,
		Duration:    uc.Duration,
		PhotoURL:    uc.PhotoURL,
		Caption:     uc.Caption,
		AssignedAt:  uc.AssignedAt,
		CompletedAt: uc.CompletedAt,
		Challenge: dto.ChallengeResponse{
			ID:             uc.Challenge.ID,
			Title:          uc.Challenge.Title,
			Description:    uc.Challenge.Description,
			Category:       uc.Challenge.Category,
			Difficulty:     uc.Challenge.Difficulty,
			XPReward:       uc.Challenge.XPReward,
			CoinsReward:    uc.Challenge.CoinsReward,
			TrackingType:   string(uc.Challenge.TrackingType),
			TargetValue:    uc.Challenge.TargetValue,
			TargetUnit:     uc.Challenge.TargetUnit,
			RequiresPhoto:  uc.Challenge.RequiresPhoto,
			AutoVerifiable: uc.Challenge.AutoVerifiable,
		},
	}
}

func DailyChallengesResponse(date time.Time, ucs []model.UserChallenge) *dto.DailyChallengesResponse {
	responses := make([]dto.UserChallengeResponse, len(ucs))
	for i := range ucs {
		responses[i] = userChallengeResponse(&ucs[i])
	}
	return &dto.DailyChallengesResponse{
		Date:       date.Format("2006-01-02"),
		Challenges: responses,
	}
}
