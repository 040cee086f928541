package tracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fitquest-app/fitquest_api/model"

	log "github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound = errors.New("tracking session not found")
	ErrSessionExists   = errors.New("tracking session already exists")
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
)

// Event carries a snapshot, never a live pointer, so listeners cannot
// mutate coordinator state.
type Event struct {
	Type    EventType
	Session Session
}

type Listener func(Event)

type StartParams struct {
	UserChallengeID string
	ChallengeID     string
	TrackingType    model.TrackingType
	TargetValue     float64
	TargetUnit      string
}

// Coordinator owns every tracking session and the shared sensor
// subscriptions feeding them. One source per tracking type serves any
// number of sessions; deltas fan out to all active sessions of that type
// in arrival order.
type Coordinator struct {
	mu        sync.Mutex
	store     SessionStore
	sources   map[model.TrackingType]SensorSource
	running   map[model.TrackingType]bool
	sessions  map[string]*Session
	listeners map[int]Listener
	nextSub   int
}

// NewCoordinator restores persisted sessions as paused: after a restart
// the user decides what to resume, but partial progress is never lost.
func NewCoordinator(store SessionStore, sources ...SensorSource) (*Coordinator, error) {
	c := &Coordinator{
		store:     store,
		sources:   make(map[model.TrackingType]SensorSource, len(sources)),
		running:   make(map[model.TrackingType]bool),
		sessions:  make(map[string]*Session),
		listeners: make(map[int]Listener),
	}
	for _, src := range sources {
		c.sources[src.Type()] = src
	}

	persisted, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to restore tracking sessions: %w", err)
	}
	for _, sess := range persisted {
		switch sess.State {
		case StateCompleted, StateCancelled:
			_ = store.Delete(sess.UserChallengeID)
			continue
		case StateActive:
			sess.State = StatePaused
			_ = store.Save(sess)
		}
		c.sessions[sess.UserChallengeID] = sess
	}

	return c, nil
}

// Available reports whether the platform can track the given type at all.
func (c *Coordinator) Available(t model.TrackingType) bool {
	src, ok := c.sources[t]
	return ok && src.Available()
}

// StartTracking creates an active session and starts the shared sensor
// stream for its type if not already running.
func (c *Coordinator) StartTracking(params StartParams) (Session, error) {
	c.mu.Lock()

	if _, exists := c.sessions[params.UserChallengeID]; exists {
		c.mu.Unlock()
		return Session{}, ErrSessionExists
	}

	src, ok := c.sources[params.TrackingType]
	if !ok || !src.Available() {
		c.mu.Unlock()
		return Session{}, ErrSensorUnavailable
	}

	if err := c.ensureSourceLocked(params.TrackingType); err != nil {
		c.mu.Unlock()
		return Session{}, err
	}

	now := time.Now()
	sess := &Session{
		UserChallengeID: params.UserChallengeID,
		ChallengeID:     params.ChallengeID,
		TrackingType:    params.TrackingType,
		TargetValue:     params.TargetValue,
		TargetUnit:      params.TargetUnit,
		State:           StateActive,
		StartedAt:       now,
		UpdatedAt:       now,
	}
	c.sessions[sess.UserChallengeID] = sess

	if err := c.store.Save(sess); err != nil {
		log.WithError(err).WithField("user_challenge_id", sess.UserChallengeID).Warn("Failed to persist tracking session")
	}

	snapshot := *sess
	c.mu.Unlock()

	c.notify(Event{Type: EventStarted, Session: snapshot})
	return snapshot, nil
}

// PauseTracking stops delta delivery but keeps the session and its
// accumulated value. The shared stream stops only if this was the last
// active session of its type.
func (c *Coordinator) PauseTracking(userChallengeID string) error {
	return c.setState(userChallengeID, StateActive, StatePaused, EventPaused)
}

// ResumeTracking continues from the accumulated value, restarting the
// shared stream if pausing had released it.
func (c *Coordinator) ResumeTracking(userChallengeID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[userChallengeID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	if sess.State != StatePaused {
		c.mu.Unlock()
		return fmt.Errorf("cannot resume session in state %s", sess.State)
	}

	if err := c.ensureSourceLocked(sess.TrackingType); err != nil {
		c.mu.Unlock()
		return err
	}

	sess.State = StateActive
	sess.UpdatedAt = time.Now()
	if err := c.store.Save(sess); err != nil {
		log.WithError(err).Warn("Failed to persist tracking session")
	}

	snapshot := *sess
	c.mu.Unlock()

	c.notify(Event{Type: EventResumed, Session: snapshot})
	return nil
}

// StopTracking cancels and removes the session, releasing the shared
// stream when no session of that type remains active.
func (c *Coordinator) StopTracking(userChallengeID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[userChallengeID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}

	sess.State = StateCancelled
	delete(c.sessions, userChallengeID)
	if err := c.store.Delete(userChallengeID); err != nil {
		log.WithError(err).Warn("Failed to delete tracking session")
	}

	snapshot := *sess
	release := c.sourceToReleaseLocked(sess.TrackingType)
	c.mu.Unlock()

	if release != nil {
		release.Stop()
	}
	c.notify(Event{Type: EventCancelled, Session: snapshot})
	return nil
}

// GetSession returns a snapshot for UI rendering.
func (c *Coordinator) GetSession(userChallengeID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[userChallengeID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Sessions snapshots every live session.
func (c *Coordinator) Sessions() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Session, 0, len(c.sessions))
	for _, sess := range c.sessions {
		out = append(out, *sess)
	}
	return out
}

// Subscribe registers a listener for every state change. The returned
// function unsubscribes; call it when the owning screen unmounts.
func (c *Coordinator) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Shutdown stops every shared sensor stream. Sessions stay persisted and
// come back paused on the next launch.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	var toStop []SensorSource
	for t, isRunning := range c.running {
		if isRunning {
			toStop = append(toStop, c.sources[t])
			c.running[t] = false
		}
	}
	c.mu.Unlock()

	for _, src := range toStop {
		src.Stop()
	}
}

func (c *Coordinator) setState(userChallengeID string, from, to State, eventType EventType) error {
	c.mu.Lock()
	sess, ok := c.sessions[userChallengeID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	if sess.State != from {
		c.mu.Unlock()
		return fmt.Errorf("cannot transition session from state %s", sess.State)
	}

	sess.State = to
	sess.UpdatedAt = time.Now()
	if err := c.store.Save(sess); err != nil {
		log.WithError(err).Warn("Failed to persist tracking session")
	}

	snapshot := *sess
	release := c.sourceToReleaseLocked(sess.TrackingType)
	c.mu.Unlock()

	if release != nil {
		release.Stop()
	}
	c.notify(Event{Type: eventType, Session: snapshot})
	return nil
}

// ensureSourceLocked starts the shared stream for the type if needed.
// Caller holds mu.
func (c *Coordinator) ensureSourceLocked(t model.TrackingType) error {
	if c.running[t] {
		return nil
	}
	src := c.sources[t]
	if err := src.Start(func(delta float64) {
		c.applyDelta(t, delta)
	}); err != nil {
		return err
	}
	c.running[t] = true
	return nil
}

// sourceToReleaseLocked returns the source to stop when zero sessions of
// the type remain active, nil otherwise. Caller holds mu; Stop is called
// after unlocking.
func (c *Coordinator) sourceToReleaseLocked(t model.TrackingType) SensorSource {
	if !c.running[t] {
		return nil
	}
	for _, sess := range c.sessions {
		if sess.TrackingType == t && sess.Active() {
			return nil
		}
	}
	c.running[t] = false
	return c.sources[t]
}

// applyDelta fans one sensor reading out to every active session of the
// matching type. Values only ever increase here.
func (c *Coordinator) applyDelta(t model.TrackingType, delta float64) {
	if delta <= 0 {
		return
	}

	c.mu.Lock()
	var events []Event
	now := time.Now()

	for _, sess := range c.sessions {
		if sess.TrackingType != t || !sess.Active() {
			continue
		}

		sess.CurrentValue += delta
		sess.UpdatedAt = now

		if sess.CurrentValue >= sess.TargetValue && sess.TargetValue > 0 {
			sess.State = StateCompleted
			events = append(events, Event{Type: EventCompleted, Session: *sess})
		} else {
			events = append(events, Event{Type: EventProgress, Session: *sess})
		}

		if err := c.store.Save(sess); err != nil {
			log.WithError(err).Warn("Failed to persist tracking session")
		}
	}

	release := c.sourceToReleaseLocked(t)
	c.mu.Unlock()

	if release != nil {
		release.Stop()
	}
	for _, ev := range events {
		c.notify(ev)
	}
}

func (c *Coordinator) notify(ev Event) {
	c.mu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
