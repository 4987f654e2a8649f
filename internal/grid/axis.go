// Package grid implements the adaptive grid whose column widths and row
// heights follow a focal point through a fisheye weighting.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/lensgrid/internal/fisheye"
)

// ErrInvalidAxis is returned when an axis cannot be partitioned.
var ErrInvalidAxis = errors.New("invalid grid axis")

// Axis is one ordered partition of an extent into cells, either the
// columns of the surface or its rows. The sizes always sum to the extent.
type Axis struct {
	extent  float64
	sizes   []float64
	targets []float64
	weights []float64
}

// NewAxis creates an axis of count cells, each extent/count wide.
func NewAxis(count int, extent float64) (*Axis, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: need at least one cell, got %d", ErrInvalidAxis, count)
	}
	if !(extent > 0) || math.IsInf(extent, 0) {
		return nil, fmt.Errorf("%w: extent must be positive, got %g", ErrInvalidAxis, extent)
	}

	a := &Axis{
		extent:  extent,
		sizes:   make([]float64, count),
		targets: make([]float64, count),
		weights: make([]float64, count),
	}
	for i := range a.sizes {
		a.sizes[i] = extent / float64(count)
	}
	settle(a.sizes, extent)
	copy(a.targets, a.sizes)

	return a, nil
}

// Len returns the number of cells.
func (a *Axis) Len() int {
	return len(a.sizes)
}

// Extent returns the total size the cells partition.
func (a *Axis) Extent() float64 {
	return a.extent
}

// Center returns the center of cell i in the uniform layout. Weights are
// always measured from these fixed centers, not from the distorted layout.
func (a *Axis) Center(i int) float64 {
	return (float64(i) + 0.5) * (a.extent / float64(len(a.sizes)))
}

// Retarget recomputes the target sizes for a focal coordinate on this axis.
// The targets are the fisheye weights rescaled to sum to the extent.
func (a *Axis) Retarget(focal float64, p fisheye.Params) {
	half := a.extent / 2
	for i := range a.weights {
		a.weights[i] = fisheye.Weight(focal-a.Center(i), half, p)
	}

	// Weights are at least MinSize each, so the total is positive.
	total := floats.Sum(a.weights)
	floats.ScaleTo(a.targets, a.extent/total, a.weights)
	settle(a.targets, a.extent)
}

// Ease moves every size a fraction rate of the way toward its target.
func (a *Axis) Ease(rate float64) {
	for i := range a.sizes {
		a.sizes[i] += rate * (a.targets[i] - a.sizes[i])
	}
	settle(a.sizes, a.extent)
}

// Sizes returns a copy of the current sizes.
func (a *Axis) Sizes() []float64 {
	return append([]float64(nil), a.sizes...)
}

// Targets returns a copy of the most recent targets. Before the first
// Retarget they equal the uniform sizes.
func (a *Axis) Targets() []float64 {
	return append([]float64(nil), a.targets...)
}

// Offsets returns the cumulative start of each cell followed by the
// extent, so cell i spans [o[i], o[i+1]).
func (a *Axis) Offsets() []float64 {
	o := make([]float64, len(a.sizes)+1)
	floats.CumSum(o[1:], a.sizes)
	o[len(o)-1] = a.extent
	return o
}

// settle folds the floating point residual of a rescale into the largest
// cell so the sizes sum to extent.
func settle(s []float64, extent float64) {
	if len(s) == 1 {
		s[0] = extent
		return
	}
	i := floats.MaxIdx(s)
	s[i] += extent - floats.Sum(s)
}
