package tracker

import (
	"errors"
	"sync"
	"testing"

	"github.com/fitquest-app/fitquest_api/model"
)

// fakeSource drives the coordinator by hand in tests.
type fakeSource struct {
	mu        sync.Mutex
	t         model.TrackingType
	available bool
	emit      EmitFunc
	started   int
	stopped   int
}

func newFakeSource(t model.TrackingType) *fakeSource {
	return &fakeSource{t: t, available: true}
}

func (f *fakeSource) Type() model.TrackingType { return f.t }

func (f *fakeSource) Available() bool { return f.available }

func (f *fakeSource) Start(emit EmitFunc) error {
	if !f.available {
		return ErrSensorUnavailable
	}
	f.mu.Lock()
	f.emit = emit
	f.started++
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	f.emit = nil
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeSource) Emit(delta float64) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit != nil {
		emit(delta)
	}
}

func (f *fakeSource) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func stepParams(id string, target float64) StartParams {
	return StartParams{
		UserChallengeID: id,
		ChallengeID:     "chal-" + id,
		TrackingType:    model.TrackingSteps,
		TargetValue:     target,
		TargetUnit:      "steps",
	}
}

func TestFanOutToAllActiveSessions(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, err := NewCoordinator(NewMemoryStore(), src)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	if _, err := c.StartTracking(stepParams("uc-1", 8000)); err != nil {
		t.Fatalf("StartTracking failed: %v", err)
	}
	if _, err := c.StartTracking(stepParams("uc-2", 15000)); err != nil {
		t.Fatalf("StartTracking failed: %v", err)
	}

	src.Emit(10)

	for _, id := range []string{"uc-1", "uc-2"} {
		sess, ok := c.GetSession(id)
		if !ok {
			t.Fatalf("session %s missing", id)
		}
		if sess.CurrentValue != 10 {
			t.Errorf("session %s: expected 10, got %v", id, sess.CurrentValue)
		}
	}
}

func TestPausedSessionReceivesNothing(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	c.StartTracking(stepParams("uc-1", 8000))
	c.StartTracking(stepParams("uc-2", 15000))

	src.Emit(10)
	if err := c.PauseTracking("uc-1"); err != nil {
		t.Fatalf("PauseTracking failed: %v", err)
	}
	src.Emit(10)

	paused, _ := c.GetSession("uc-1")
	active, _ := c.GetSession("uc-2")
	if paused.CurrentValue != 10 {
		t.Errorf("paused session must keep its value, got %v", paused.CurrentValue)
	}
	if active.CurrentValue != 20 {
		t.Errorf("active session must keep accumulating, got %v", active.CurrentValue)
	}
}

func TestResumeContinuesFromAccumulatedValue(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	c.StartTracking(stepParams("uc-1", 8000))
	src.Emit(100)
	c.PauseTracking("uc-1")
	src.Emit(50)

	if err := c.ResumeTracking("uc-1"); err != nil {
		t.Fatalf("ResumeTracking failed: %v", err)
	}
	src.Emit(25)

	sess, _ := c.GetSession("uc-1")
	if sess.CurrentValue != 125 {
		t.Errorf("expected 125 after resume, got %v", sess.CurrentValue)
	}
}

func TestCompletionDetection(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	var completions []Session
	unsubscribe := c.Subscribe(func(ev Event) {
		if ev.Type == EventCompleted {
			completions = append(completions, ev.Session)
		}
	})
	defer unsubscribe()

	c.StartTracking(stepParams("uc-1", 15))

	src.Emit(10)
	if len(completions) != 0 {
		t.Fatal("premature completion")
	}

	src.Emit(10)
	if len(completions) != 1 {
		t.Fatalf("expected exactly one completion event, got %d", len(completions))
	}
	if completions[0].CurrentValue != 20 {
		t.Errorf("completion snapshot value: got %v", completions[0].CurrentValue)
	}

	// Completed sessions stop receiving deltas.
	src.Emit(10)
	sess, _ := c.GetSession("uc-1")
	if sess.CurrentValue != 20 {
		t.Errorf("completed session must not accumulate further, got %v", sess.CurrentValue)
	}
	if len(completions) != 1 {
		t.Errorf("completion must fire once, got %d events", len(completions))
	}
}

func TestSourceReleasedWhenLastActiveSessionEnds(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	c.StartTracking(stepParams("uc-1", 8000))
	c.StartTracking(stepParams("uc-2", 15000))

	if err := c.StopTracking("uc-1"); err != nil {
		t.Fatalf("StopTracking failed: %v", err)
	}
	if src.stopCount() != 0 {
		t.Fatal("source must stay running while another session is active")
	}

	if err := c.StopTracking("uc-2"); err != nil {
		t.Fatalf("StopTracking failed: %v", err)
	}
	if src.stopCount() != 1 {
		t.Fatalf("source must be released with the last session, stop count %d", src.stopCount())
	}

	if _, ok := c.GetSession("uc-1"); ok {
		t.Error("stopped session must be removed")
	}
}

func TestPausingAllSessionsReleasesSource(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	c.StartTracking(stepParams("uc-1", 8000))
	c.PauseTracking("uc-1")

	if src.stopCount() != 1 {
		t.Fatalf("pausing the only session must release the source, stop count %d", src.stopCount())
	}

	// Resume restarts the stream.
	if err := c.ResumeTracking("uc-1"); err != nil {
		t.Fatalf("ResumeTracking failed: %v", err)
	}
	src.Emit(5)
	sess, _ := c.GetSession("uc-1")
	if sess.CurrentValue != 5 {
		t.Errorf("expected 5 after resume, got %v", sess.CurrentValue)
	}
}

func TestSensorUnavailable(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	src.available = false
	c, _ := NewCoordinator(NewMemoryStore(), src)

	if c.Available(model.TrackingSteps) {
		t.Error("Available must report false")
	}

	_, err := c.StartTracking(stepParams("uc-1", 8000))
	if !errors.Is(err, ErrSensorUnavailable) {
		t.Fatalf("expected ErrSensorUnavailable, got %v", err)
	}
	if _, ok := c.GetSession("uc-1"); ok {
		t.Error("no session must exist after a failed start")
	}
}

func TestRestartRecoversSessionsAsPaused(t *testing.T) {
	store := NewMemoryStore()
	src := newFakeSource(model.TrackingSteps)

	first, _ := NewCoordinator(store, src)
	first.StartTracking(stepParams("uc-1", 8000))
	src.Emit(640)
	first.Shutdown()

	// Simulated app restart: fresh coordinator over the same store.
	second, err := NewCoordinator(store, newFakeSource(model.TrackingSteps))
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	sess, ok := second.GetSession("uc-1")
	if !ok {
		t.Fatal("session must survive restart")
	}
	if sess.State != StatePaused {
		t.Errorf("restored session must come back paused, got %s", sess.State)
	}
	if sess.CurrentValue != 640 {
		t.Errorf("partial progress must be recovered, got %v", sess.CurrentValue)
	}
}

func TestDuplicateSessionRejected(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	if _, err := c.StartTracking(stepParams("uc-1", 8000)); err != nil {
		t.Fatalf("StartTracking failed: %v", err)
	}
	if _, err := c.StartTracking(stepParams("uc-1", 8000)); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	src := newFakeSource(model.TrackingSteps)
	c, _ := NewCoordinator(NewMemoryStore(), src)

	events := 0
	unsubscribe := c.Subscribe(func(ev Event) { events++ })

	c.StartTracking(stepParams("uc-1", 8000))
	if events != 1 {
		t.Fatalf("expected 1 event, got %d", events)
	}

	unsubscribe()
	src.Emit(10)
	if events != 1 {
		t.Fatalf("no events after unsubscribe, got %d", events)
	}
}
