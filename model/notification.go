package model

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationLevelUp         NotificationType = "level_up"
	NotificationStreakMilestone NotificationType = "streak_milestone"
	NotificationBadgeEarned     NotificationType = "badge_earned"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a constructed payload; delivery happens through the
// dispatcher's push provider and is best-effort.
type Notification struct {
	ID        string             `json:"id" gorm:"primaryKey"`
	UserID    string             `json:"user_id" gorm:"index;not null"`
	Type      NotificationType   `json:"type" gorm:"not null"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	Data      json.RawMessage    `json:"data" gorm:"type:text"`
	Status    NotificationStatus `json:"status" gorm:"default:pending"`
	SentAt    *time.Time         `json:"sent_at"`
	CreatedAt time.Time          `json:"created_at"`
}
