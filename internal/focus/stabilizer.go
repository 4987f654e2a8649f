// Package focus smooths the raw landmark stream into a stable focal point.
package focus

import (
	"fmt"

	"github.com/ayusman/lensgrid/internal/geom"
)

// DefaultRate is the reference smoothing rate.
const DefaultRate = 0.2

// Stabilizer keeps the last known focal point and eases it toward each new
// detection. It is not safe for concurrent use; the render loop owns it.
type Stabilizer struct {
	rate  float64
	point geom.Normalized
	valid bool
}

// NewStabilizer creates a Stabilizer. The rate must be in (0, 1]; lower is
// smoother and slower to react.
func NewStabilizer(rate float64) (*Stabilizer, error) {
	if !(rate > 0 && rate <= 1) {
		return nil, fmt.Errorf("smoothing rate must be in (0, 1], got %g", rate)
	}
	return &Stabilizer{rate: rate}, nil
}

// Observe feeds the landmark detected this frame, or nil when there was no
// detection, and returns the focal point to use. ok is false until the
// first detection has been seen.
func (s *Stabilizer) Observe(raw *geom.Normalized) (p geom.Normalized, ok bool) {
	switch {
	case raw == nil:
		// freeze on the last known point
	case !s.valid:
		s.point = *raw
		s.valid = true
	default:
		s.point.X = geom.Lerp(s.point.X, raw.X, s.rate)
		s.point.Y = geom.Lerp(s.point.Y, raw.Y, s.rate)
	}
	return s.point, s.valid
}

// Point returns the current stabilized point without changing it.
func (s *Stabilizer) Point() (geom.Normalized, bool) {
	return s.point, s.valid
}

// Rate returns the smoothing rate.
func (s *Stabilizer) Rate() float64 {
	return s.rate
}
