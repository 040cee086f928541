package tracker

import (
	"math"
	"time"
)

const earthRadiusMeters = 6371000

// Fix is a single GPS reading.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Haversine returns the great-circle distance between two fixes in meters.
func Haversine(a, b Fix) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

type RouteOptions struct {
	// Fixes closer than this to the previous accepted fix are dropped so
	// GPS jitter does not inflate distance.
	MinDistanceMeters float64
	// Fixes arriving sooner than this after the previous accepted fix are
	// dropped.
	MinInterval time.Duration
	// Perpendicular-distance tolerance for route simplification, meters.
	SimplifyTolerance float64
}

func DefaultRouteOptions() RouteOptions {
	return RouteOptions{
		MinDistanceMeters: 5,
		MinInterval:       2 * time.Second,
		SimplifyTolerance: 10,
	}
}

// RouteRecorder accumulates path length across accepted GPS fixes.
type RouteRecorder struct {
	opts   RouteOptions
	points []Fix
	total  float64
}

func NewRouteRecorder(opts RouteOptions) *RouteRecorder {
	return &RouteRecorder{opts: opts}
}

// Add feeds the next fix. The returned delta is the accepted path length
// increment in meters, zero when the fix was filtered out.
func (r *RouteRecorder) Add(fix Fix) (float64, bool) {
	if len(r.points) == 0 {
		r.points = append(r.points, fix)
		return 0, true
	}

	last := r.points[len(r.points)-1]
	if fix.Timestamp.Sub(last.Timestamp) < r.opts.MinInterval {
		return 0, false
	}

	delta := Haversine(last, fix)
	if delta < r.opts.MinDistanceMeters {
		return 0, false
	}

	r.points = append(r.points, fix)
	r.total += delta
	return delta, true
}

// TotalDistance is the accumulated path length in meters.
func (r *RouteRecorder) TotalDistance() float64 {
	return r.total
}

// Route returns the accepted fixes in order.
func (r *RouteRecorder) Route() []Fix {
	out := make([]Fix, len(r.points))
	copy(out, r.points)
	return out
}

// SimplifiedRoute applies Douglas-Peucker filtering before persistence.
// Endpoints always survive; the reported total distance is unaffected.
func (r *RouteRecorder) SimplifiedRoute() []Fix {
	return DouglasPeucker(r.Route(), r.opts.SimplifyTolerance)
}

// DouglasPeucker drops points whose perpendicular distance from the
// segment between their neighbours is under tolerance meters.
func DouglasPeucker(points []Fix, tolerance float64) []Fix {
	if len(points) < 3 {
		return points
	}

	maxDist := 0.0
	maxIdx := 0
	for i := 1; i < len(points)-1; i++ {
		d := perpendicularDistance(points[i], points[0], points[len(points)-1])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= tolerance {
		return []Fix{points[0], points[len(points)-1]}
	}

	left := DouglasPeucker(points[:maxIdx+1], tolerance)
	right := DouglasPeucker(points[maxIdx:], tolerance)

	// left can alias the input's backing array, so never append through it.
	out := make([]Fix, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	out = append(out, right...)
	return out
}

// perpendicularDistance projects onto a local equirectangular plane, which
// is accurate enough at route scale.
func perpendicularDistance(p, start, end Fix) float64 {
	refLat := start.Latitude * math.Pi / 180
	toXY := func(f Fix) (float64, float64) {
		x := f.Longitude * math.Pi / 180 * math.Cos(refLat) * earthRadiusMeters
		y := f.Latitude * math.Pi / 180 * earthRadiusMeters
		return x, y
	}

	px, py := toXY(p)
	sx, sy := toXY(start)
	ex, ey := toXY(end)

	dx := ex - sx
	dy := ey - sy
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return math.Hypot(px-sx, py-sy)
	}

	t := ((px-sx)*dx + (py-sy)*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	cx := sx + t*dx
	cy := sy + t*dy
	return math.Hypot(px-cx, py-cy)
}
