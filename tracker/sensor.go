package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/fitquest-app/fitquest_api/model"
)

// ErrSensorUnavailable is returned when the platform lacks the sensor a
// tracking type needs. Callers check availability before offering the UI.
var ErrSensorUnavailable = errors.New("sensor unavailable on this platform")

// EmitFunc receives one positive delta in the tracking type's target unit.
type EmitFunc func(delta float64)

// SensorSource is one shared platform sensor subscription. The coordinator
// starts at most one source per tracking type regardless of how many
// sessions consume it.
type SensorSource interface {
	Type() model.TrackingType
	Available() bool
	Start(emit EmitFunc) error
	Stop()
}

// CumulativeStepSource adapts pedometers that report a since-boot running
// total. Readings are converted to deltas against the previous one, so the
// coordinator only ever sees increments.
type CumulativeStepSource struct {
	mu        sync.Mutex
	emit      EmitFunc
	last      float64
	primed    bool
	available bool
}

func NewCumulativeStepSource(available bool) *CumulativeStepSource {
	return &CumulativeStepSource{available: available}
}

func (s *CumulativeStepSource) Type() model.TrackingType { return model.TrackingSteps }

func (s *CumulativeStepSource) Available() bool { return s.available }

func (s *CumulativeStepSource) Start(emit EmitFunc) error {
	if !s.available {
		return ErrSensorUnavailable
	}
	s.mu.Lock()
	s.emit = emit
	s.primed = false
	s.mu.Unlock()
	return nil
}

func (s *CumulativeStepSource) Stop() {
	s.mu.Lock()
	s.emit = nil
	s.mu.Unlock()
}

// Push feeds the platform's cumulative reading. The first reading after
// Start only sets the baseline. A reading lower than the previous one means
// the counter reset (device reboot); the baseline moves without emitting.
func (s *CumulativeStepSource) Push(total float64) {
	s.mu.Lock()
	emit := s.emit
	if emit == nil {
		s.mu.Unlock()
		return
	}

	if !s.primed {
		s.primed = true
		s.last = total
		s.mu.Unlock()
		return
	}

	delta := total - s.last
	s.last = total
	s.mu.Unlock()

	if delta > 0 {
		emit(delta)
	}
}

// IncrementalStepSource adapts pedometers that already report per-event
// deltas. Negative readings are dropped.
type IncrementalStepSource struct {
	mu        sync.Mutex
	emit      EmitFunc
	available bool
}

func NewIncrementalStepSource(available bool) *IncrementalStepSource {
	return &IncrementalStepSource{available: available}
}

func (s *IncrementalStepSource) Type() model.TrackingType { return model.TrackingSteps }

func (s *IncrementalStepSource) Available() bool { return s.available }

func (s *IncrementalStepSource) Start(emit EmitFunc) error {
	if !s.available {
		return ErrSensorUnavailable
	}
	s.mu.Lock()
	s.emit = emit
	s.mu.Unlock()
	return nil
}

func (s *IncrementalStepSource) Stop() {
	s.mu.Lock()
	s.emit = nil
	s.mu.Unlock()
}

func (s *IncrementalStepSource) Push(delta float64) {
	s.mu.Lock()
	emit := s.emit
	s.mu.Unlock()

	if emit != nil && delta > 0 {
		emit(delta)
	}
}

// DistanceSource turns raw GPS fixes into meter deltas through a
// RouteRecorder, so jittery fixes never inflate a session's distance.
type DistanceSource struct {
	mu        sync.Mutex
	emit      EmitFunc
	recorder  *RouteRecorder
	opts      RouteOptions
	available bool
}

func NewDistanceSource(available bool, opts RouteOptions) *DistanceSource {
	return &DistanceSource{available: available, opts: opts}
}

func (s *DistanceSource) Type() model.TrackingType { return model.TrackingDistance }

func (s *DistanceSource) Available() bool { return s.available }

func (s *DistanceSource) Start(emit EmitFunc) error {
	if !s.available {
		return ErrSensorUnavailable
	}
	s.mu.Lock()
	s.emit = emit
	s.recorder = NewRouteRecorder(s.opts)
	s.mu.Unlock()
	return nil
}

func (s *DistanceSource) Stop() {
	s.mu.Lock()
	s.emit = nil
	s.mu.Unlock()
}

// Push feeds the next GPS fix.
func (s *DistanceSource) Push(fix Fix) {
	s.mu.Lock()
	emit := s.emit
	recorder := s.recorder
	s.mu.Unlock()

	if emit == nil || recorder == nil {
		return
	}

	delta, accepted := recorder.Add(fix)
	if accepted && delta > 0 {
		emit(delta)
	}
}

// Route exposes the recorded, simplified route for persistence.
func (s *DistanceSource) Route() []Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder == nil {
		return nil
	}
	return s.recorder.SimplifiedRoute()
}

// DurationSource emits one second per tick. Always available.
type DurationSource struct {
	mu   sync.Mutex
	stop chan struct{}
}

func NewDurationSource() *DurationSource {
	return &DurationSource{}
}

func (s *DurationSource) Type() model.TrackingType { return model.TrackingDuration }

func (s *DurationSource) Available() bool { return true }

func (s *DurationSource) Start(emit EmitFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				emit(1)
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func (s *DurationSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}
