package dto

import (
	"encoding/json"
	"time"
)

type ChallengeResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Difficulty     string  `json:"difficulty"`
	XPReward       int     `json:"xp_reward"`
	CoinsReward    int     `json:"coins_reward"`
	TrackingType   string  `json:"tracking_type,omitempty"`
	TargetValue    float64 `json:"target_value,omitempty"`
	TargetUnit     string  `json:"target_unit,omitempty"`
	RequiresPhoto  bool    `json:"requires_photo"`
	AutoVerifiable bool    `json:"auto_verifiable"`
}

type UserChallengeResponse struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	Steps       int               `json:"steps,omitempty"`
	Distance    float64           `json:"distance,omitempty"`
	Duration    int               `json:"duration,omitempty"`
	PhotoURL    string            `json:"photo_url,omitempty"`
	Caption     string            `json:"caption,omitempty"`
	AssignedAt  time.Time         `json:"assigned_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Challenge   ChallengeResponse `json:"challenge"`
}

type DailyChallengesResponse struct {
	Date       string                  `json:"date"`
	Challenges []UserChallengeResponse `json:"challenges"`
}

type CompleteChallengeRequest struct {
	Caption string `json:"caption" validate:"max=280"`
}

type CompletionResponse struct {
	Challenge UserChallengeResponse `json:"challenge"`
	Stats     StatsResponse         `json:"stats"`
	LeveledUp bool                  `json:"leveled_up"`
	NewLevel  int                   `json:"new_level,omitempty"`
	NewBadges []BadgeResponse       `json:"new_badges"`
}

type UpdateProgressRequest struct {
	CurrentValue float64         `json:"current_value" validate:"gte=0"`
	SensorData   json.RawMessage `json:"sensor_data,omitempty"`
}

type ProgressResponse struct {
	Skipped  bool   `json:"skipped"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}
