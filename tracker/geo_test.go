package tracker

import (
	"math"
	"testing"
	"time"
)

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude is ~111.19 km anywhere on the globe.
	a := Fix{Latitude: 0, Longitude: 0}
	b := Fix{Latitude: 1, Longitude: 0}

	got := Haversine(a, b)
	want := 111195.0
	if math.Abs(got-want) > 100 {
		t.Errorf("expected ~%v m, got %v", want, got)
	}

	if d := Haversine(a, a); d != 0 {
		t.Errorf("identical fixes must be 0 apart, got %v", d)
	}
}

func TestRouteRecorderMinIntervalFilter(t *testing.T) {
	rec := NewRouteRecorder(DefaultRouteOptions())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	rec.Add(Fix{Latitude: 0, Longitude: 0, Timestamp: base})
	// Large jump but too soon after the previous accepted fix.
	if _, accepted := rec.Add(Fix{Latitude: 0.001, Longitude: 0, Timestamp: base.Add(time.Second)}); accepted {
		t.Error("fix inside the min interval must be rejected")
	}
	if rec.TotalDistance() != 0 {
		t.Errorf("rejected fixes must not add distance, got %v", rec.TotalDistance())
	}

	delta, accepted := rec.Add(Fix{Latitude: 0.001, Longitude: 0, Timestamp: base.Add(5 * time.Second)})
	if !accepted {
		t.Fatal("fix past the min interval must be accepted")
	}
	if math.Abs(delta-111.19) > 1 {
		t.Errorf("expected ~111m delta, got %v", delta)
	}
}

func TestRouteRecorderMinDistanceFilter(t *testing.T) {
	rec := NewRouteRecorder(DefaultRouteOptions())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	rec.Add(Fix{Latitude: 0, Longitude: 0, Timestamp: base})
	// ~1m of GPS jitter, well outside the interval gate.
	if _, accepted := rec.Add(Fix{Latitude: 0.00001, Longitude: 0, Timestamp: base.Add(10 * time.Second)}); accepted {
		t.Error("jitter under the min distance must be rejected")
	}
	if len(rec.Route()) != 1 {
		t.Errorf("rejected fix must not join the route, got %d points", len(rec.Route()))
	}
}

func TestDouglasPeuckerCollapsesCollinearPoints(t *testing.T) {
	points := []Fix{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.0005, Longitude: 0},
		{Latitude: 0.001, Longitude: 0},
		{Latitude: 0.0015, Longitude: 0},
		{Latitude: 0.002, Longitude: 0},
	}

	simplified := DouglasPeucker(points, 10)
	if len(simplified) != 2 {
		t.Fatalf("collinear route must collapse to endpoints, got %d points", len(simplified))
	}
	if simplified[0] != points[0] || simplified[1] != points[len(points)-1] {
		t.Error("endpoints must survive simplification")
	}
}

func TestDouglasPeuckerKeepsSignificantDetour(t *testing.T) {
	points := []Fix{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.001, Longitude: 0.001}, // ~78m off the straight line
		{Latitude: 0.002, Longitude: 0},
	}

	simplified := DouglasPeucker(points, 10)
	if len(simplified) != 3 {
		t.Fatalf("significant detour must survive, got %d points", len(simplified))
	}
}

func TestDouglasPeuckerLeavesInputIntact(t *testing.T) {
	// A sharp detour at the second point followed by a collinear tail makes
	// the recursion drop interior points, which must land in the result
	// slice and never shift values inside the caller's slice.
	points := []Fix{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.001, Longitude: 0.002},
		{Latitude: 0.002, Longitude: 0.002},
		{Latitude: 0.003, Longitude: 0.002},
		{Latitude: 0.004, Longitude: 0.002},
	}
	original := make([]Fix, len(points))
	copy(original, points)

	simplified := DouglasPeucker(points, 10)

	for i := range points {
		if points[i] != original[i] {
			t.Fatalf("input slice mutated at %d: got %+v, want %+v", i, points[i], original[i])
		}
	}
	if len(simplified) != 3 {
		t.Fatalf("expected 3 surviving points, got %d", len(simplified))
	}
}

func TestDouglasPeuckerShortInputUnchanged(t *testing.T) {
	points := []Fix{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}
	if got := DouglasPeucker(points, 10); len(got) != 2 {
		t.Fatalf("two-point route must be untouched, got %d", len(got))
	}
}
