package dto

import "time"

type StatsResponse struct {
	UserID              string `json:"user_id"`
	XP                  int    `json:"xp"`
	Coins               int    `json:"coins"`
	Level               int    `json:"level"`
	XPToNextLevel       int    `json:"xp_to_next_level"`
	CurrentStreak       int    `json:"current_streak"`
	LongestStreak       int    `json:"longest_streak"`
	ChallengesCompleted int    `json:"challenges_completed"`
	BadgeCount          int    `json:"badge_count"`
}

type BadgeResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	IconURL          string     `json:"icon_url"`
	Rarity           string     `json:"rarity"`
	RequirementType  string     `json:"requirement_type"`
	RequirementValue int        `json:"requirement_value"`
	EarnedAt         *time.Time `json:"earned_at,omitempty"`
}

type BadgeCollectionResponse struct {
	Badges []BadgeResponse `json:"badges"`
	Total  int             `json:"total"`
	Earned int             `json:"earned"`
}

type RewardEntryResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int       `json:"amount"`
	SourceType  string    `json:"source_type"`
	SourceID    string    `json:"source_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardHistoryResponse struct {
	Entries []RewardEntryResponse `json:"entries"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}

type LeaderboardUserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	XP       int    `json:"xp"`
	Rank     int    `json:"rank"`
}

type LeaderboardResponse struct {
	CurrentUser LeaderboardUserResponse   `json:"current_user"`
	TopUsers    []LeaderboardUserResponse `json:"top_users"`
}
