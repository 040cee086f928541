package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fitquest-app/fitquest_api/model"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

// Db Access to the raw gorm handle
func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "fitquest"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}

		ds.database = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	return ds.DefaultService.Configure(ctx)
}

// Start opens the connection with retry and migrates any tables that
// changed since last runtime.
func (ds *PostgresService) Start() (err error) {
	maxRetries := 5
	retryDelay := 1 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})
		if err == nil {
			break
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	err = ds.db.AutoMigrate(Models()...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

// Models lists every server-side entity for migration. Shared with the
// in-memory test databases.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.UserProgress{},
		&model.Challenge{},
		&model.UserChallenge{},
		&model.Badge{},
		&model.UserBadge{},
		&model.RewardHistory{},
		&model.Notification{},
	}
}

func (ds *PostgresService) Shutdown() {
	if ds.db == nil {
		return
	}
	if sqlDB, err := ds.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "duplicate key value") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

// ==================== USER QUERIES ====================

func (ds *PostgresService) GetUserByID(id string) (*model.User, error) {
	var user model.User
	err := ds.db.Where("id = ?", id).First(&user).Error
	return &user, err
}

func (ds *PostgresService) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	err := ds.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	return &user, err
}

func (ds *PostgresService) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	err := ds.db.Where("LOWER(username) = LOWER(?)", username).First(&user).Error
	return &user, err
}

func (ds *PostgresService) GetUserByEmailOrUsername(emailOrUsername string) (*model.User, error) {
	var user model.User
	err := ds.db.Where("LOWER(email) = LOWER(?) OR LOWER(username) = LOWER(?)",
		emailOrUsername, emailOrUsername).First(&user).Error
	return &user, err
}

func (ds *PostgresService) CreateUser(user *model.User) (*model.User, error) {
	err := ds.db.Create(user).Error
	return user, err
}

func (ds *PostgresService) UpdateUser(user *model.User) error {
	user.UpdatedAt = time.Now()
	return ds.db.Save(user).Error
}

// ==================== PROGRESSION QUERIES ====================

func (ds *PostgresService) CreateUserProgress(progress *model.UserProgress) (*model.UserProgress, error) {
	err := ds.db.Create(progress).Error
	return progress, err
}

func (ds *PostgresService) GetUserProgress(userID string) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := ds.db.Where("user_id = ?", userID).First(&progress).Error
	return &progress, err
}

func (ds *PostgresService) UpdateUserProgress(progress *model.UserProgress) error {
	progress.UpdatedAt = time.Now()
	return ds.db.Save(progress).Error
}

// ==================== CHALLENGE QUERIES ====================

func (ds *PostgresService) GetActiveChallenges() ([]model.Challenge, error) {
	var challenges []model.Challenge
	err := ds.db.Where("is_active = ?", true).Find(&challenges).Error
	return challenges, err
}

func (ds *PostgresService) GetChallenge(id string) (*model.Challenge, error) {
	var challenge model.Challenge
	err := ds.db.Where("id = ?", id).First(&challenge).Error
	return &challenge, err
}

func (ds *PostgresService) CreateChallenge(challenge *model.Challenge) (*model.Challenge, error) {
	err := ds.db.Create(challenge).Error
	return challenge, err
}

func (ds *PostgresService) GetUserChallenge(id string) (*model.UserChallenge, error) {
	var uc model.UserChallenge
	err := ds.db.Preload("Challenge").Where("id = ?", id).First(&uc).Error
	return &uc, err
}

func (ds *PostgresService) GetUserChallengesSince(userID string, since time.Time) ([]model.UserChallenge, error) {
	var ucs []model.UserChallenge
	err := ds.db.Preload("Challenge").
		Where("user_id = ? AND assigned_at >= ?", userID, since).
		Order("assigned_at ASC").
		Find(&ucs).Error
	return ucs, err
}

func (ds *PostgresService) UpdateUserChallenge(uc *model.UserChallenge) error {
	uc.UpdatedAt = time.Now()
	return ds.db.Save(uc).Error
}

func (ds *PostgresService) CountCompletedChallenges(userID string) (int64, error) {
	var count int64
	err := ds.db.Model(&model.UserChallenge{}).
		Where("user_id = ? AND status = ?", userID, model.StatusCompleted).
		Count(&count).Error
	return count, err
}

func (ds *PostgresService) CountCompletedInCategory(userID, category string) (int64, error) {
	var count int64
	err := ds.db.Model(&model.UserChallenge{}).
		Joins("JOIN challenges ON challenges.id = user_challenges.challenge_id").
		Where("user_challenges.user_id = ? AND user_challenges.status = ? AND challenges.category = ?",
			userID, model.StatusCompleted, category).
		Count(&count).Error
	return count, err
}

// ==================== BADGE QUERIES ====================

func (ds *PostgresService) GetActiveBadges() ([]model.Badge, error) {
	var badges []model.Badge
	err := ds.db.Where("is_active = ?", true).Find(&badges).Error
	return badges, err
}

func (ds *PostgresService) GetUserBadges(userID string) ([]model.UserBadge, error) {
	var userBadges []model.UserBadge
	err := ds.db.Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

func (ds *PostgresService) CountBadges() (int64, error) {
	var count int64
	err := ds.db.Model(&model.Badge{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// ==================== REWARD HISTORY ====================

func (ds *PostgresService) GetRewardHistory(userID string, page, limit int) ([]model.RewardHistory, int64, error) {
	var entries []model.RewardHistory
	var total int64

	q := ds.db.Model(&model.RewardHistory{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// ==================== LEADERBOARD ====================

func (ds *PostgresService) GetTopUsersByXP(limit int) ([]model.UserProgress, error) {
	var users []model.UserProgress
	err := ds.db.Order("xp DESC").Limit(limit).Find(&users).Error
	return users, err
}

func (ds *PostgresService) GetUserRank(userID string) (int, error) {
	progress, err := ds.GetUserProgress(userID)
	if err != nil {
		return 0, err
	}

	var ahead int64
	err = ds.db.Model(&model.UserProgress{}).Where("xp > ?", progress.XP).Count(&ahead).Error
	return int(ahead) + 1, err
}

// ==================== NOTIFICATIONS ====================

func (ds *PostgresService) CreateNotification(n *model.Notification) error {
	return ds.db.Create(n).Error
}

func (ds *PostgresService) MarkNotificationSent(id string) error {
	now := time.Now()
	return ds.db.Model(&model.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.NotificationSent, "sent_at": &now}).Error
}

func (ds *PostgresService) MarkNotificationFailed(id string) error {
	return ds.db.Model(&model.Notification{}).Where("id = ?", id).
		Update("status", model.NotificationFailed).Error
}
