package tracker

import (
	"time"

	"github.com/fitquest-app/fitquest_api/model"
)

type State string

const (
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Session is one challenge attempt fed by the shared sensor stream. Keyed
// by the server-side user challenge id.
type Session struct {
	UserChallengeID string             `json:"user_challenge_id"`
	ChallengeID     string             `json:"challenge_id"`
	TrackingType    model.TrackingType `json:"tracking_type"`
	TargetValue     float64            `json:"target_value"`
	TargetUnit      string             `json:"target_unit"`
	CurrentValue    float64            `json:"current_value"`
	State           State              `json:"state"`
	StartedAt       time.Time          `json:"started_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Active reports whether the session should receive sensor deltas.
func (s *Session) Active() bool {
	return s.State == StateActive
}

// Progress is the 0..1 completion ratio for display.
func (s *Session) Progress() float64 {
	if s.TargetValue <= 0 {
		return 0
	}
	p := s.CurrentValue / s.TargetValue
	if p > 1 {
		p = 1
	}
	return p
}
