// Package testdata builds synthetic camera frames for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// BandColors are the colours of the vertical bands drawn by Bands, left
// to right.
var BandColors = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

// Bands returns a BGR frame split into len(BandColors) vertical bands of
// equal width. The caller closes the Mat.
func Bands(width, height int) *gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	n := len(BandColors)
	for i, c := range BandColors {
		x0 := i * width / n
		x1 := (i + 1) * width / n
		gocv.Rectangle(&mat, image.Rect(x0, 0, x1, height), c, -1)
	}
	return &mat
}

// Sequence returns n copies of frame for a mock camera. The caller closes
// every Mat.
func Sequence(frame *gocv.Mat, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		clone := frame.Clone()
		frames = append(frames, &clone)
	}
	return frames
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
