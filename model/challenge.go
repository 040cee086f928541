package model

import (
	"encoding/json"
	"time"
)

// TrackingType identifies which sensor stream drives a challenge, if any.
type TrackingType string

const (
	TrackingNone     TrackingType = ""
	TrackingSteps    TrackingType = "steps"
	TrackingDistance TrackingType = "distance"
	TrackingDuration TrackingType = "duration"
	TrackingAltitude TrackingType = "altitude"
)

// AutoTracked reports whether progress is sensor-driven rather than manual.
// Altitude is catalogued but not yet wired to a sensor source.
func (t TrackingType) AutoTracked() bool {
	switch t {
	case TrackingSteps, TrackingDistance, TrackingDuration:
		return true
	default:
		return false
	}
}

type ChallengeStatus string

const (
	StatusPending    ChallengeStatus = "pending"
	StatusInProgress ChallengeStatus = "in_progress"
	StatusCompleted  ChallengeStatus = "completed"
)

// Challenge is a catalog entry, immutable once assigned for a day.
type Challenge struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	Title          string       `json:"title" gorm:"not null"`
	Description    string       `json:"description" gorm:"type:text"`
	Category       string       `json:"category"` // fitness, mindfulness, nutrition, social, exploration
	Difficulty     string       `json:"difficulty"`
	XPReward       int          `json:"xp_reward" gorm:"default:50"`
	CoinsReward    int          `json:"coins_reward" gorm:"default:10"`
	TrackingType   TrackingType `json:"tracking_type"`
	TargetValue    float64      `json:"target_value"`
	TargetUnit     string       `json:"target_unit"`
	RequiresPhoto  bool         `json:"requires_photo" gorm:"default:false"`
	AutoVerifiable bool         `json:"auto_verifiable" gorm:"default:false"`
	IsActive       bool         `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsMeta reports whether completion is derived from other completions
// ("complete N challenges today") instead of direct user action.
func (c *Challenge) IsMeta() bool {
	return c.AutoVerifiable && c.TrackingType == TrackingNone
}

// UserChallenge is the per-user, per-day assignment of a catalog Challenge.
type UserChallenge struct {
	ID          string          `json:"id" gorm:"primaryKey"`
	UserID      string          `json:"user_id" gorm:"index;not null"`
	ChallengeID string          `json:"challenge_id" gorm:"not null"`
	Status      ChallengeStatus `json:"status" gorm:"default:pending"`
	Progress    int             `json:"progress" gorm:"default:0"` // 0..100, capped at 99 until completion
	Steps       int             `json:"steps" gorm:"default:0"`
	Distance    float64         `json:"distance" gorm:"default:0"` // meters
	Duration    int             `json:"duration" gorm:"default:0"` // seconds
	SensorData  json.RawMessage `json:"sensor_data" gorm:"type:text"`
	PhotoURL    string          `json:"photo_url"`
	Caption     string          `json:"caption"`
	AssignedAt  time.Time       `json:"assigned_at" gorm:"index"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Challenge Challenge `json:"challenge" gorm:"foreignKey:ChallengeID"`
}
