package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *PostgresService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// A single pooled connection keeps the shared in-memory database alive
	// and serializes writers, which sqlite cannot do on its own.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access test database pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &PostgresService{db: db}
}

func newTestProgressionService(sqlSvc *PostgresService) *ProgressionService {
	return &ProgressionService{
		sqlSvc:           sqlSvc,
		streakMilestones: []int{3, 7, 14, 30, 100},
	}
}

func seedProgress(t *testing.T, db *gorm.DB, userID string) *model.UserProgress {
	t.Helper()
	id, _ := uuid.NewV7()
	progress := &model.UserProgress{
		ID:     id.String(),
		UserID: userID,
		Level:  1,
	}
	if err := db.Create(progress).Error; err != nil {
		t.Fatalf("failed to seed progress: %v", err)
	}
	return progress
}

func TestXPForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{1, 0},
		{2, 150},
		{3, 400},
		{4, 750},
		{5, 1200},
		{10, 4950},
	}
	for _, tc := range cases {
		if got := XPForLevel(tc.level); got != tc.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

func TestLevelFromXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{149, 1},
		{150, 2},
		{399, 2},
		{400, 3},
		{1200, 5},
	}
	for _, tc := range cases {
		if got := LevelFromXP(tc.xp); got != tc.want {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestLevelFromXPMonotonic(t *testing.T) {
	prev := 1
	for xp := 0; xp <= 50000; xp += 7 {
		level := LevelFromXP(xp)
		if level < prev {
			t.Fatalf("LevelFromXP(%d) = %d, below previous level %d", xp, level, prev)
		}
		if XPForLevel(level) > xp {
			t.Fatalf("LevelFromXP(%d) = %d but that level costs %d", xp, level, XPForLevel(level))
		}
		if XPForLevel(level+1) <= xp {
			t.Fatalf("LevelFromXP(%d) = %d but level %d is already affordable", xp, level, level+1)
		}
		prev = level
	}
}

func TestApplyRewardsRejectsNegative(t *testing.T) {
	sqlSvc := newTestDB(t)
	svc := newTestProgressionService(sqlSvc)
	progress := seedProgress(t, sqlSvc.Db(), "user-1")

	_, err := svc.ApplyRewards(sqlSvc.Db(), progress, -10, 0, "src")
	if err == nil {
		t.Fatal("expected error for negative xp delta")
	}
	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != 400 {
		t.Fatalf("expected 400 app error, got %v", err)
	}
}

func TestApplyRewardsLevelUpAndLedger(t *testing.T) {
	sqlSvc := newTestDB(t)
	svc := newTestProgressionService(sqlSvc)
	progress := seedProgress(t, sqlSvc.Db(), "user-1")

	result, err := svc.ApplyRewards(sqlSvc.Db(), progress, 150, 20, "chal-1")
	if err != nil {
		t.Fatalf("ApplyRewards failed: %v", err)
	}

	if !result.LeveledUp || result.NewLevel != 2 {
		t.Errorf("expected level up to 2, got leveledUp=%v level=%d", result.LeveledUp, result.NewLevel)
	}
	if result.NewXP != 150 || result.NewCoins != 20 {
		t.Errorf("unexpected totals: xp=%d coins=%d", result.NewXP, result.NewCoins)
	}

	var entries []model.RewardHistory
	if err := sqlSvc.Db().Where("user_id = ?", "user-1").Find(&entries).Error; err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	// xp + coins + level_up
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
	types := map[model.RewardType]bool{}
	for _, e := range entries {
		types[e.Type] = true
	}
	for _, want := range []model.RewardType{model.RewardXP, model.RewardCoins, model.RewardLevelUp} {
		if !types[want] {
			t.Errorf("missing ledger entry of type %s", want)
		}
	}
}

func TestApplyRewardsLevelNeverDecreases(t *testing.T) {
	sqlSvc := newTestDB(t)
	svc := newTestProgressionService(sqlSvc)
	progress := seedProgress(t, sqlSvc.Db(), "user-1")
	progress.Level = 10

	result, err := svc.ApplyRewards(sqlSvc.Db(), progress, 50, 0, "chal-1")
	if err != nil {
		t.Fatalf("ApplyRewards failed: %v", err)
	}
	if result.NewLevel != 10 || result.LeveledUp {
		t.Errorf("level must not decrease: got level=%d leveledUp=%v", result.NewLevel, result.LeveledUp)
	}
}

func TestUpdateStreakFirstActivity(t *testing.T) {
	svc := newTestProgressionService(nil)
	progress := &model.UserProgress{UserID: "user-1"}

	result := svc.UpdateStreak(progress, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	if !result.Changed || result.CurrentStreak != 1 || result.LongestStreak != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestUpdateStreakSameDayNoOp(t *testing.T) {
	svc := newTestProgressionService(nil)
	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)

	progress := &model.UserProgress{UserID: "user-1", CurrentStreak: 4, LongestStreak: 6, LastActiveDate: &morning}

	result := svc.UpdateStreak(progress, evening)
	if result.Changed {
		t.Error("same-day update must not change the streak")
	}
	if result.CurrentStreak != 4 || result.LongestStreak != 6 {
		t.Errorf("unexpected result: %+v", result)
	}
	if !progress.LastActiveDate.Equal(morning) {
		t.Error("same-day update must not touch last active date")
	}
}

func TestUpdateStreakNextDayIncrements(t *testing.T) {
	svc := newTestProgressionService(nil)
	yesterday := time.Date(2026, 3, 9, 23, 50, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 10, 0, 0, time.UTC)

	progress := &model.UserProgress{UserID: "user-1", CurrentStreak: 2, LongestStreak: 2, LastActiveDate: &yesterday}

	result := svc.UpdateStreak(progress, today)
	if !result.Changed || result.CurrentStreak != 3 {
		t.Errorf("expected streak 3, got %+v", result)
	}
	if result.LongestStreak != 3 {
		t.Errorf("longest must follow current: %+v", result)
	}
	if result.Milestone != 3 {
		t.Errorf("expected milestone 3, got %d", result.Milestone)
	}
}

func TestUpdateStreakGapResets(t *testing.T) {
	svc := newTestProgressionService(nil)
	lastWeek := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	progress := &model.UserProgress{UserID: "user-1", CurrentStreak: 9, LongestStreak: 9, LastActiveDate: &lastWeek}

	result := svc.UpdateStreak(progress, today)
	if result.CurrentStreak != 1 {
		t.Errorf("expected reset to 1, got %d", result.CurrentStreak)
	}
	if result.LongestStreak != 9 {
		t.Errorf("longest streak must survive the reset, got %d", result.LongestStreak)
	}
}

func TestUpdateStreakAcrossSpringForward(t *testing.T) {
	svc := newTestProgressionService(nil)

	// Consecutive local calendar days 23 wall-clock hours apart, as on the
	// night the clocks jump forward. Must count as one day, not zero.
	est := time.FixedZone("EST", -5*3600)
	edt := time.FixedZone("EDT", -4*3600)
	lastActive := time.Date(2026, 3, 7, 22, 0, 0, 0, est)
	now := time.Date(2026, 3, 8, 8, 0, 0, 0, edt)

	progress := &model.UserProgress{UserID: "user-1", CurrentStreak: 5, LongestStreak: 5, LastActiveDate: &lastActive}

	result := svc.UpdateStreak(progress, now)
	if !result.Changed {
		t.Fatal("next-day activity across a clock shift must change the streak")
	}
	if result.CurrentStreak != 6 {
		t.Errorf("expected streak 6, got %d", result.CurrentStreak)
	}
}

func TestEvaluateBadgesIdempotent(t *testing.T) {
	sqlSvc := newTestDB(t)
	svc := newTestProgressionService(sqlSvc)
	db := sqlSvc.Db()

	badge := model.Badge{
		ID:               "badge-first",
		Name:             "First Steps",
		RequirementType:  model.BadgeChallengesCompleted,
		RequirementValue: 1,
		IsActive:         true,
	}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("failed to seed badge: %v", err)
	}

	challenge := model.Challenge{ID: "chal-1", Title: "Walk", Category: shared.CategoryFitness, IsActive: true}
	if err := db.Create(&challenge).Error; err != nil {
		t.Fatalf("failed to seed challenge: %v", err)
	}
	now := time.Now()
	uc := model.UserChallenge{
		ID:          "uc-1",
		UserID:      "user-1",
		ChallengeID: "chal-1",
		Status:      model.StatusCompleted,
		CompletedAt: &now,
		AssignedAt:  now,
	}
	if err := db.Create(&uc).Error; err != nil {
		t.Fatalf("failed to seed user challenge: %v", err)
	}

	progress := seedProgress(t, db, "user-1")

	first, err := svc.EvaluateBadges(db, progress)
	if err != nil {
		t.Fatalf("EvaluateBadges failed: %v", err)
	}
	if len(first) != 1 || first[0].ID != "badge-first" {
		t.Fatalf("expected one awarded badge, got %v", first)
	}

	second, err := svc.EvaluateBadges(db, progress)
	if err != nil {
		t.Fatalf("EvaluateBadges failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second evaluation must award nothing, got %v", second)
	}

	var count int64
	if err := db.Model(&model.UserBadge{}).Where("user_id = ?", "user-1").Count(&count).Error; err != nil {
		t.Fatalf("failed to count user badges: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 user badge row, got %d", count)
	}
}

func TestEvaluateBadgesCategoryMaster(t *testing.T) {
	sqlSvc := newTestDB(t)
	svc := newTestProgressionService(sqlSvc)
	db := sqlSvc.Db()

	badge := model.Badge{
		ID:               "badge-iron",
		Name:             "Iron Body",
		RequirementType:  model.BadgeCategoryMaster,
		RequirementValue: 2,
		IsActive:         true,
	}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("failed to seed badge: %v", err)
	}

	now := time.Now()
	for i := 0; i < 2; i++ {
		chalID := fmt.Sprintf("chal-fit-%d", i)
		if err := db.Create(&model.Challenge{ID: chalID, Title: "Fit", Category: shared.CategoryFitness, IsActive: true}).Error; err != nil {
			t.Fatalf("failed to seed challenge: %v", err)
		}
		uc := model.UserChallenge{
			ID:          fmt.Sprintf("uc-%d", i),
			UserID:      "user-1",
			ChallengeID: chalID,
			Status:      model.StatusCompleted,
			CompletedAt: &now,
			AssignedAt:  now,
		}
		if err := db.Create(&uc).Error; err != nil {
			t.Fatalf("failed to seed user challenge: %v", err)
		}
	}

	progress := seedProgress(t, db, "user-1")

	awarded, err := svc.EvaluateBadges(db, progress)
	if err != nil {
		t.Fatalf("EvaluateBadges failed: %v", err)
	}
	if len(awarded) != 1 || awarded[0].Name != "Iron Body" {
		t.Fatalf("expected Iron Body award, got %v", awarded)
	}
}

func TestParseStreakMilestones(t *testing.T) {
	if got := parseStreakMilestones(""); len(got) != 5 || got[0] != 3 {
		t.Errorf("empty input must yield defaults, got %v", got)
	}
	if got := parseStreakMilestones("5, 10,20"); len(got) != 3 || got[1] != 10 {
		t.Errorf("unexpected parse result: %v", got)
	}
	if got := parseStreakMilestones("5,banana"); len(got) != 5 {
		t.Errorf("invalid input must fall back to defaults, got %v", got)
	}
}
