// Package fisheye provides the weight function that turns the distance of a
// grid cell from the focal point into a target cell size.
package fisheye

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/lensgrid/internal/geom"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid fisheye parameters")

// Params controls the lens falloff.
type Params struct {
	// MaxSize is the size of a cell at the focal point.
	MaxSize float64 `toml:"max_size"`
	// MinSize is the size of a cell at or beyond half the axis extent.
	// It must be positive so that an axis never sums to zero weight.
	MinSize float64 `toml:"min_size"`
	// Falloff is the exponent of the falloff curve. Higher is narrower.
	Falloff float64 `toml:"falloff"`
}

// Validate checks that the parameters describe a usable lens.
func (p Params) Validate() error {
	for _, v := range []float64{p.MaxSize, p.MinSize, p.Falloff} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidParams)
		}
	}
	if p.MinSize <= 0 {
		return fmt.Errorf("%w: min size must be positive, got %g", ErrInvalidParams, p.MinSize)
	}
	if p.MaxSize < p.MinSize {
		return fmt.Errorf("%w: max size %g is below min size %g", ErrInvalidParams, p.MaxSize, p.MinSize)
	}
	if p.Falloff < 0 {
		return fmt.Errorf("%w: falloff must not be negative, got %g", ErrInvalidParams, p.Falloff)
	}
	return nil
}

// Weight returns the target size of a cell whose center lies distance
// pixels away from the focal coordinate on an axis with the given half
// extent. The result is always within [MinSize, MaxSize].
func Weight(distance, halfExtent float64, p Params) float64 {
	if halfExtent <= 0 {
		return p.MinSize
	}

	normDist := geom.Clamp(math.Abs(distance)/halfExtent, 0, 1)
	w := p.MaxSize * math.Pow(1-normDist, p.Falloff)

	return geom.Clamp(w, p.MinSize, p.MaxSize)
}
