package grid

import (
	"fmt"

	"github.com/ayusman/lensgrid/internal/fisheye"
	"github.com/ayusman/lensgrid/internal/geom"
)

// DefaultEasing is the reference easing rate of the grid.
const DefaultEasing = 0.07

// Options configures an Engine.
type Options struct {
	Cols   int
	Rows   int
	Width  float64
	Height float64
	Params fisheye.Params
	// Easing is the fraction of the remaining distance to the targets
	// covered per update, in (0, 1].
	Easing float64
}

// Engine owns the column widths and row heights of the distorted grid.
// It is not safe for concurrent use.
type Engine struct {
	cols   *Axis
	rows   *Axis
	params fisheye.Params
	easing float64
}

// New creates an Engine with a uniform grid.
func New(opts Options) (*Engine, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if !(opts.Easing > 0 && opts.Easing <= 1) {
		return nil, fmt.Errorf("easing rate must be in (0, 1], got %g", opts.Easing)
	}

	cols, err := NewAxis(opts.Cols, opts.Width)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	rows, err := NewAxis(opts.Rows, opts.Height)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &Engine{
		cols:   cols,
		rows:   rows,
		params: opts.Params,
		easing: opts.Easing,
	}, nil
}

// Update retargets both axes on the focal point and eases the current
// sizes toward the new targets. Frames without a focal point simply do not
// call Update, which leaves the grid where it is.
func (e *Engine) Update(focal geom.SurfacePoint) {
	e.cols.Retarget(focal.X, e.params)
	e.rows.Retarget(focal.Y, e.params)
	e.cols.Ease(e.easing)
	e.rows.Ease(e.easing)
}

// Dims returns the number of columns and rows.
func (e *Engine) Dims() (cols, rows int) {
	return e.cols.Len(), e.rows.Len()
}

// Size returns the surface size the grid tiles.
func (e *Engine) Size() geom.Size {
	return geom.Size{W: e.cols.Extent(), H: e.rows.Extent()}
}

// ColumnWidths returns a copy of the current column widths.
func (e *Engine) ColumnWidths() []float64 { return e.cols.Sizes() }

// RowHeights returns a copy of the current row heights.
func (e *Engine) RowHeights() []float64 { return e.rows.Sizes() }

// ColumnTargets returns a copy of the latest column targets.
func (e *Engine) ColumnTargets() []float64 { return e.cols.Targets() }

// RowTargets returns a copy of the latest row targets.
func (e *Engine) RowTargets() []float64 { return e.rows.Targets() }

// ColumnOffsets returns the cumulative x edges of the columns.
func (e *Engine) ColumnOffsets() []float64 { return e.cols.Offsets() }

// RowOffsets returns the cumulative y edges of the rows.
func (e *Engine) RowOffsets() []float64 { return e.rows.Offsets() }

// Cell returns the surface rectangle of cell (r, c).
func (e *Engine) Cell(r, c int) geom.Rect {
	xs := e.cols.Offsets()
	ys := e.rows.Offsets()
	return geom.Rect{
		X: xs[c],
		Y: ys[r],
		W: e.cols.sizes[c],
		H: e.rows.sizes[r],
	}
}

// Snapshot is a copy of the grid geometry.
type Snapshot struct {
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	ColumnWidths  []float64 `json:"column_widths"`
	RowHeights    []float64 `json:"row_heights"`
	ColumnTargets []float64 `json:"column_targets"`
	RowTargets    []float64 `json:"row_targets"`
}

// Snapshot copies the current geometry.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Width:         e.cols.Extent(),
		Height:        e.rows.Extent(),
		ColumnWidths:  e.cols.Sizes(),
		RowHeights:    e.rows.Sizes(),
		ColumnTargets: e.cols.Targets(),
		RowTargets:    e.rows.Targets(),
	}
}
