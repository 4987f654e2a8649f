// Package display shows the rendered surface in a desktop window.
package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrClosed is returned by Show after the window was closed.
var ErrClosed = errors.New("display: window closed")

// Presenter receives every rendered surface. Show reports quit when the
// viewer asked to stop.
type Presenter interface {
	Show(surface *image.RGBA) (quit bool, err error)
	Close() error
}

// Window presents frames in an OpenCV HighGUI window. It must be used from
// the goroutine that created it.
type Window struct {
	window *gocv.Window
	mu     sync.Mutex
	closed bool
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	w := gocv.NewWindow(title)
	w.SetWindowProperty(gocv.WindowPropertyAutosize, gocv.WindowAutosize)
	return &Window{window: w}
}

// Show draws surface and pumps the window's event loop once. Any key press
// is a request to quit.
func (w *Window) Show(surface *image.RGBA) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true, ErrClosed
	}

	mat, err := ToMat(surface)
	if err != nil {
		return false, err
	}
	defer mat.Close()

	w.window.IMShow(mat)
	return w.window.WaitKey(1) >= 0, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.window.Close()
}

// ToMat converts a surface into a BGR Mat for OpenCV. The caller closes
// the Mat.
func ToMat(surface *image.RGBA) (gocv.Mat, error) {
	rgba, err := gocv.ImageToMatRGBA(surface)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert surface: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// Headless discards frames. It stands in for the window when the lens only
// feeds the HTTP stream.
type Headless struct{}

func (Headless) Show(*image.RGBA) (bool, error) { return false, nil }
func (Headless) Close() error                   { return nil }
