package handlers

import (
	"encoding/json"
	"mime/multipart"
	"time"

	"github.com/fitquest-app/fitquest_api/dto"
)

type AuthServiceInterface interface {
	Register(req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(req dto.LoginRequest) (*dto.LoginResponse, error)
}

type ChallengeServiceInterface interface {
	AssignDaily(userID string, now time.Time) (*dto.DailyChallengesResponse, error)
	CompleteChallenge(userID, userChallengeID, photoURL, caption string) (*dto.CompletionResponse, error)
	UpdateChallengeProgress(userID, userChallengeID string, currentValue float64, sensorData json.RawMessage) (*dto.ProgressResponse, error)
}

type ProgressionServiceInterface interface {
	GetUserStats(userID string) (*dto.StatsResponse, error)
	GetUserBadgeCollection(userID string) (*dto.BadgeCollectionResponse, error)
	GetRewardHistory(userID string, page, limit int) (*dto.RewardHistoryResponse, error)
	GetLeaderboard(limit int, currentUserID string) (*dto.LeaderboardResponse, error)
}

type MediaServiceInterface interface {
	UploadChallengePhoto(userID string, file *multipart.FileHeader) (string, error)
}
