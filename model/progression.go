package model

import "time"

// UserProgress is the single per-user progression row: XP, coins, level
// and streak state. Level never decreases once stored.
type UserProgress struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"user_id" gorm:"uniqueIndex;not null"`
	XP             int        `json:"xp" gorm:"default:0"`
	Coins          int        `json:"coins" gorm:"default:0"`
	Level          int        `json:"level" gorm:"default:1"`
	CurrentStreak  int        `json:"current_streak" gorm:"default:0"`
	LongestStreak  int        `json:"longest_streak" gorm:"default:0"`
	LastActiveDate *time.Time `json:"last_active_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type BadgeRequirement string

const (
	BadgeChallengesCompleted BadgeRequirement = "challenges_completed"
	BadgeStreakDays          BadgeRequirement = "streak_days"
	BadgeLevelReached        BadgeRequirement = "level_reached"
	BadgeXPEarned            BadgeRequirement = "xp_earned"
	BadgeCategoryMaster      BadgeRequirement = "category_master"
)

type Badge struct {
	ID               string           `json:"id" gorm:"primaryKey"`
	Name             string           `json:"name" gorm:"uniqueIndex;not null"`
	Description      string           `json:"description"`
	IconURL          string           `json:"icon_url"`
	Rarity           string           `json:"rarity"`
	RequirementType  BadgeRequirement `json:"requirement_type"`
	RequirementValue int              `json:"requirement_value"`
	IsActive         bool             `json:"is_active" gorm:"default:true"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// UserBadge is awarded at most once per (user, badge) pair.
type UserBadge struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	UserID   string    `json:"user_id" gorm:"index:idx_user_badge,unique;not null"`
	BadgeID  string    `json:"badge_id" gorm:"index:idx_user_badge,unique;not null"`
	EarnedAt time.Time `json:"earned_at"`

	Badge Badge `json:"badge" gorm:"foreignKey:BadgeID"`
}

type RewardType string

const (
	RewardXP      RewardType = "xp"
	RewardCoins   RewardType = "coins"
	RewardBadge   RewardType = "badge"
	RewardLevelUp RewardType = "level_up"
)

// RewardHistory is an append-only ledger; rows are never mutated or deleted.
type RewardHistory struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	Type        RewardType `json:"type" gorm:"not null"`
	Amount      int        `json:"amount"`
	SourceType  string     `json:"source_type"` // challenge, badge, level
	SourceID    string     `json:"source_id"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}
