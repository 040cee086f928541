package tracker

import (
	"testing"
	"time"
)

func TestCumulativeStepSourceNormalizesToDeltas(t *testing.T) {
	src := NewCumulativeStepSource(true)

	var got []float64
	if err := src.Start(func(delta float64) { got = append(got, delta) }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.Push(1000) // baseline only
	src.Push(1012)
	src.Push(1012) // no movement
	src.Push(1020)

	want := []float64{12, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %d deltas, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestCumulativeStepSourceHandlesCounterReset(t *testing.T) {
	src := NewCumulativeStepSource(true)

	var got []float64
	src.Start(func(delta float64) { got = append(got, delta) })

	src.Push(5000)
	src.Push(5010)
	src.Push(3) // device rebooted, counter restarted
	src.Push(8)

	want := []float64{10, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestIncrementalStepSourcePassesThrough(t *testing.T) {
	src := NewIncrementalStepSource(true)

	var got []float64
	src.Start(func(delta float64) { got = append(got, delta) })

	src.Push(12)
	src.Push(-3) // dropped
	src.Push(8)

	want := []float64{12, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStepSourcesUnavailable(t *testing.T) {
	cumulative := NewCumulativeStepSource(false)
	if err := cumulative.Start(func(float64) {}); err != ErrSensorUnavailable {
		t.Errorf("expected ErrSensorUnavailable, got %v", err)
	}

	incremental := NewIncrementalStepSource(false)
	if err := incremental.Start(func(float64) {}); err != ErrSensorUnavailable {
		t.Errorf("expected ErrSensorUnavailable, got %v", err)
	}
}

func TestDistanceSourceFiltersJitter(t *testing.T) {
	src := NewDistanceSource(true, DefaultRouteOptions())

	var total float64
	src.Start(func(delta float64) { total += delta })

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	src.Push(Fix{Latitude: 52.5200, Longitude: 13.4050, Timestamp: base})
	// ~1m wiggle after 3s: filtered by the min-distance gate
	src.Push(Fix{Latitude: 52.52001, Longitude: 13.4050, Timestamp: base.Add(3 * time.Second)})
	// ~111m north after 10s: accepted
	src.Push(Fix{Latitude: 52.5210, Longitude: 13.4050, Timestamp: base.Add(10 * time.Second)})

	if total < 100 || total > 125 {
		t.Errorf("expected roughly 111m accumulated, got %v", total)
	}
}
