// Package compositor renders the distorted grid by scaling mirrored slices
// of the video frame into the grid cells of the output surface.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ErrFrameNotReady is returned when the video frame has no usable size yet.
var ErrFrameNotReady = errors.New("video frame not ready")

// Background is the colour the surface is cleared to before compositing.
var Background = color.RGBA{R: 211, G: 211, B: 211, A: 255} // lightgrey

// Grid is the geometry the compositor draws. *grid.Engine implements it.
type Grid interface {
	Dims() (cols, rows int)
	ColumnOffsets() []float64
	RowOffsets() []float64
}

// Cell pairs a source slice of the video with its destination on the
// surface. Dst is relative to the surface origin.
type Cell struct {
	Row int
	Col int
	Src image.Rectangle
	Dst image.Rectangle
}

// Compositor draws grid cells with an interpolator.
type Compositor struct {
	interp     xdraw.Interpolator
	background color.Color
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithInterpolator selects the scaler used per cell.
func WithInterpolator(i xdraw.Interpolator) Option {
	return func(c *Compositor) {
		c.interp = i
	}
}

// WithBackground sets the clear colour. A nil colour disables clearing.
func WithBackground(bg color.Color) Option {
	return func(c *Compositor) {
		c.background = bg
	}
}

// New creates a Compositor using nearest neighbour scaling on a light grey
// background.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		interp:     xdraw.NearestNeighbor,
		background: Background,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseInterpolator maps a name to an interpolator.
func ParseInterpolator(name string) (xdraw.Interpolator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nearest":
		return xdraw.NearestNeighbor, nil
	case "approx-bilinear":
		return xdraw.ApproxBiLinear, nil
	case "bilinear":
		return xdraw.BiLinear, nil
	case "catmullrom", "bicubic":
		return xdraw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown interpolator %q", name)
	}
}

// ParseColor reads a "#rrggbb" colour. An empty string yields Background.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Background, nil
	}

	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("colour %q is not #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Ready reports whether a frame is large enough to be split into
// cols x rows non-empty slices.
func Ready(frame image.Rectangle, cols, rows int) bool {
	return cols > 0 && rows > 0 && frame.Dx() >= cols && frame.Dy() >= rows
}

// SourceSlice returns the part of the frame that feeds cell (r, c). Columns
// are mirrored: column c samples slice cols-1-c of the frame.
func SourceSlice(frame image.Rectangle, cols, rows, r, c int) image.Rectangle {
	k := cols - 1 - c
	w, h := frame.Dx(), frame.Dy()
	return image.Rect(
		frame.Min.X+k*w/cols,
		frame.Min.Y+r*h/rows,
		frame.Min.X+(k+1)*w/cols,
		frame.Min.Y+(r+1)*h/rows,
	)
}

// DestRect returns the surface rectangle of cell (r, c) from the grid's
// cumulative edges. Edges are rounded once, so neighbours share them.
func DestRect(xs, ys []float64, r, c int) image.Rectangle {
	return image.Rect(
		round(xs[c]), round(ys[r]),
		round(xs[c+1]), round(ys[r+1]),
	)
}

func round(v float64) int {
	return int(math.Round(v))
}

// Plan lists every cell of the grid in row-major order.
func (c *Compositor) Plan(frame image.Rectangle, g Grid) ([]Cell, error) {
	cols, rows := g.Dims()
	if !Ready(frame, cols, rows) {
		return nil, ErrFrameNotReady
	}

	xs := g.ColumnOffsets()
	ys := g.RowOffsets()

	cells := make([]Cell, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			cells = append(cells, Cell{
				Row: r,
				Col: col,
				Src: SourceSlice(frame, cols, rows, r, col),
				Dst: DestRect(xs, ys, r, col),
			})
		}
	}
	return cells, nil
}

// Compose clears dst and draws every cell of the grid from src. It returns
// the number of cells that covered at least one pixel.
func (c *Compositor) Compose(dst draw.Image, src image.Image, g Grid) (int, error) {
	cells, err := c.Plan(src.Bounds(), g)
	if err != nil {
		return 0, err
	}

	origin := dst.Bounds().Min
	if c.background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	}

	drawn := 0
	for _, cell := range cells {
		dr := cell.Dst.Add(origin)
		if dr.Empty() {
			continue
		}
		c.interp.Scale(dst, dr, src, cell.Src, draw.Src, nil)
		drawn++
	}
	return drawn, nil
}
