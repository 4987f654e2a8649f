// Package lens ties the focal point stabilizer, the grid engine and the
// compositor into one object that advances once per rendered frame.
package lens

import (
	"fmt"
	"image"

	"github.com/ayusman/lensgrid/internal/compositor"
	"github.com/ayusman/lensgrid/internal/fisheye"
	"github.com/ayusman/lensgrid/internal/focus"
	"github.com/ayusman/lensgrid/internal/geom"
	"github.com/ayusman/lensgrid/internal/grid"
)

// Options configures a Lens.
type Options struct {
	Cols          int
	Rows          int
	Width         int
	Height        int
	Params        fisheye.Params
	SmoothingRate float64
	EasingRate    float64
	// Compositor draws the cells. Nil uses compositor.New().
	Compositor *compositor.Compositor
}

// Result describes what one Tick did.
type Result struct {
	// Ready is false when the video frame had no usable size; nothing else
	// happened that tick.
	Ready bool
	// Tracking is true once a focal point has been placed on the surface,
	// live or frozen. A detection seen only on not-ready frames does not
	// count until a ready frame maps it.
	Tracking bool
	// Focal is the focal point in surface pixels, valid when Tracking.
	Focal geom.SurfacePoint
	// Cells is the number of grid cells drawn.
	Cells int
}

// Lens is the per-run state of the effect. It is driven by a single
// goroutine; none of its methods are safe for concurrent use.
type Lens struct {
	stabilizer *focus.Stabilizer
	engine     *grid.Engine
	compositor *compositor.Compositor
	surface    *image.RGBA
	focal      geom.SurfacePoint
	hasFocal   bool
	last       Result
}

// New validates the options and creates a Lens with a uniform grid.
func New(opts Options) (*Lens, error) {
	stabilizer, err := focus.NewStabilizer(opts.SmoothingRate)
	if err != nil {
		return nil, err
	}

	engine, err := grid.New(grid.Options{
		Cols:   opts.Cols,
		Rows:   opts.Rows,
		Width:  float64(opts.Width),
		Height: float64(opts.Height),
		Params: opts.Params,
		Easing: opts.EasingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("create grid: %w", err)
	}

	comp := opts.Compositor
	if comp == nil {
		comp = compositor.New()
	}

	return &Lens{
		stabilizer: stabilizer,
		engine:     engine,
		compositor: comp,
		surface:    image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
	}, nil
}

// Tick advances the lens by one frame. raw is the focal landmark detected
// for this frame, or nil. frame is the current video image.
//
// Without a usable frame the tick is skipped entirely. Without any focal
// point yet the grid stays as it is and the frame is still composited.
func (l *Lens) Tick(raw *geom.Normalized, frame image.Image) Result {
	p, tracking := l.stabilizer.Observe(raw)

	if frame == nil {
		return l.skip(tracking)
	}
	bounds := frame.Bounds()
	cols, rows := l.engine.Dims()
	if !compositor.Ready(bounds, cols, rows) {
		return l.skip(tracking)
	}

	video := geom.Size{W: float64(bounds.Dx()), H: float64(bounds.Dy())}
	fit, ok := geom.CoverFit(video, l.engine.Size())
	if !ok {
		return l.skip(tracking)
	}

	res := Result{Ready: true, Tracking: tracking}
	if tracking {
		res.Focal = fit.NormalizedToSurface(p)
		l.engine.Update(res.Focal)
		l.focal, l.hasFocal = res.Focal, true
	}

	n, err := l.compositor.Compose(l.surface, frame, l.engine)
	if err != nil {
		return l.skip(tracking)
	}
	res.Cells = n

	l.last = res
	return res
}

func (l *Lens) skip(tracking bool) Result {
	res := Result{Tracking: tracking && l.hasFocal}
	if res.Tracking {
		res.Focal = l.focal
	}
	l.last = res
	return res
}

// Surface is the rendered output. It is overwritten by the next Tick.
func (l *Lens) Surface() *image.RGBA {
	return l.surface
}

// Grid returns a copy of the current grid geometry.
func (l *Lens) Grid() grid.Snapshot {
	return l.engine.Snapshot()
}

// Last returns the result of the most recent Tick.
func (l *Lens) Last() Result {
	return l.last
}
