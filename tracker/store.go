package tracker

import (
	"sync"
	"time"

	"github.com/fitquest-app/fitquest_api/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionStore persists sessions so a walk survives an app restart.
type SessionStore interface {
	Save(session *Session) error
	Delete(userChallengeID string) error
	Load() ([]*Session, error)
}

type sessionRecord struct {
	UserChallengeID string  `gorm:"primaryKey"`
	ChallengeID     string  `gorm:"not null"`
	TrackingType    string  `gorm:"not null"`
	TargetValue     float64 `gorm:"not null"`
	TargetUnit      string
	CurrentValue    float64 `gorm:"default:0"`
	State           string  `gorm:"not null"`
	StartedAt       time.Time
	UpdatedAt       time.Time
}

func (sessionRecord) TableName() string {
	return "tracking_sessions"
}

// SQLiteStore keeps sessions in the device-local database.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(session *Session) error {
	rec := sessionRecord{
		UserChallengeID: session.UserChallengeID,
		ChallengeID:     session.ChallengeID,
		TrackingType:    string(session.TrackingType),
		TargetValue:     session.TargetValue,
		TargetUnit:      session.TargetUnit,
		CurrentValue:    session.CurrentValue,
		State:           string(session.State),
		StartedAt:       session.StartedAt,
		UpdatedAt:       session.UpdatedAt,
	}
	return s.db.Save(&rec).Error
}

func (s *SQLiteStore) Delete(userChallengeID string) error {
	return s.db.Delete(&sessionRecord{}, "user_challenge_id = ?", userChallengeID).Error
}

func (s *SQLiteStore) Load() ([]*Session, error) {
	var recs []sessionRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, &Session{
			UserChallengeID: rec.UserChallengeID,
			ChallengeID:     rec.ChallengeID,
			TrackingType:    model.TrackingType(rec.TrackingType),
			TargetValue:     rec.TargetValue,
			TargetUnit:      rec.TargetUnit,
			CurrentValue:    rec.CurrentValue,
			State:           State(rec.State),
			StartedAt:       rec.StartedAt,
			UpdatedAt:       rec.UpdatedAt,
		})
	}
	return sessions, nil
}

// MemoryStore is the non-persistent fallback, also used by tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (s *MemoryStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserChallengeID] = *session
	return nil
}

func (s *MemoryStore) Delete(userChallengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userChallengeID)
	return nil
}

func (s *MemoryStore) Load() ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		copied := sess
		out = append(out, &copied)
	}
	return out, nil
}
