// Package geom defines the coordinate spaces used between the landmark
// tracker, the video source and the output surface, and the conversions
// between them.
//
// Three spaces exist:
//   - Normalized: tracker output, (0,0) top-left to (1,1) bottom-right of
//     the unmirrored camera image.
//   - VideoPoint: pixels of the video after it has been cover-fitted to the
//     surface (the "scaled" video), not yet mirrored.
//   - SurfacePoint: pixels of the output surface, mirrored so the image
//     behaves like a mirror for the user facing the camera.
package geom

import "math"

// Normalized is a landmark coordinate in [0,1]x[0,1].
type Normalized struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VideoPoint is a position in scaled video pixels.
type VideoPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SurfacePoint is a position in output surface pixels.
type SurfacePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Valid reports whether both dimensions are positive and finite.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0 && !math.IsInf(s.W, 0) && !math.IsInf(s.H, 0)
}

// Rect is an axis-aligned rectangle in float pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Fit describes how the video is scaled to cover the surface while keeping
// its aspect ratio. The scaled video is centered on the surface, so it may
// overhang on one axis.
type Fit struct {
	Surface Size
	Scaled  Size
}

// CoverFit computes the cover fit of a video of the given size onto the
// surface. ok is false while the video has no usable dimensions yet.
func CoverFit(video, surface Size) (fit Fit, ok bool) {
	if !video.Valid() || !surface.Valid() {
		return Fit{}, false
	}

	videoAspect := video.W / video.H
	surfaceAspect := surface.W / surface.H

	fit.Surface = surface
	if videoAspect > surfaceAspect {
		// wider than the surface: match heights
		fit.Scaled.H = surface.H
		fit.Scaled.W = surface.H * videoAspect
	} else {
		fit.Scaled.W = surface.W
		fit.Scaled.H = surface.W / videoAspect
	}
	return fit, true
}

// Offset is the position of the scaled video's top-left corner on the surface.
func (f Fit) Offset() SurfacePoint {
	return SurfacePoint{
		X: f.Surface.W/2 - f.Scaled.W/2,
		Y: f.Surface.H/2 - f.Scaled.H/2,
	}
}

// NormalizedToVideo maps a tracker coordinate into scaled video pixels.
func (f Fit) NormalizedToVideo(p Normalized) VideoPoint {
	return VideoPoint{X: p.X * f.Scaled.W, Y: p.Y * f.Scaled.H}
}

// VideoToSurface mirrors a video point horizontally and moves it into
// surface space.
func (f Fit) VideoToSurface(p VideoPoint) SurfacePoint {
	off := f.Offset()
	return SurfacePoint{
		X: f.Scaled.W - p.X + off.X,
		Y: p.Y + off.Y,
	}
}

// NormalizedToSurface is VideoToSurface(NormalizedToVideo(p)).
func (f Fit) NormalizedToSurface(p Normalized) SurfacePoint {
	return f.VideoToSurface(f.NormalizedToVideo(p))
}

// Lerp moves a toward b by t.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
