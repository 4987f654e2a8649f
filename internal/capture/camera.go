// Package capture provides the video source of the lens: a webcam read
// through GoCV, a replaying mock, and a motion gate for idle scenes.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"
)

// Defaults for a webcam opened without options.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when reading from a source that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// ErrEmptyFrame is returned when the device delivered no image. Cameras do
// this for a few frames while they warm up.
var ErrEmptyFrame = errors.New("captured frame is empty")

// Camera is a source of video frames for the lens.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame; the caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	// Size is the frame size the source delivers, zero until known. The
	// lens cover-fits whatever this is onto its surface.
	Size() image.Point
}

// Option configures a Webcam.
type Option func(*Webcam)

// WithResolution asks the device for width x height frames, normally the
// output surface size. Non-positive values keep the default.
func WithResolution(width, height int) Option {
	return func(w *Webcam) {
		if width > 0 && height > 0 {
			w.requested = image.Pt(width, height)
		}
	}
}

// WithFPS asks the device for fps frames per second.
func WithFPS(fps int) Option {
	return func(w *Webcam) {
		if fps > 0 {
			w.fps = fps
		}
	}
}

// Webcam reads frames from a local video device. Devices treat the
// requested resolution as a hint; Size reports what they granted.
type Webcam struct {
	deviceID  int
	requested image.Point
	fps       int

	mu      sync.Mutex
	vc      *gocv.VideoCapture
	granted image.Point
}

// NewCamera creates a Webcam for deviceID. Nothing is opened yet.
func NewCamera(deviceID int, opts ...Option) *Webcam {
	w := &Webcam{
		deviceID:  deviceID,
		requested: image.Pt(DefaultWidth, DefaultHeight),
		fps:       DefaultFPS,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Requested is the resolution asked of the device.
func (w *Webcam) Requested() image.Point {
	return w.requested
}

// Open starts the device and negotiates resolution and rate.
func (w *Webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(w.deviceID)
	if err != nil {
		return fmt.Errorf("open device %d: %w", w.deviceID, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.requested.X))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.requested.Y))
	vc.Set(gocv.VideoCaptureFPS, float64(w.fps))

	w.vc = vc
	w.granted = image.Pt(int(vc.Get(gocv.VideoCaptureFrameWidth)), int(vc.Get(gocv.VideoCaptureFrameHeight)))

	logger := log.With("device", w.deviceID)
	if w.granted != w.requested {
		logger.Info("camera resolution differs from request", "requested", w.requested, "granted", w.granted)
	} else {
		logger.Debug("camera opened", "size", w.granted, "fps", w.fps)
	}
	return nil
}

// Close releases the device. Closing twice is a no-op.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil {
		return nil
	}
	err := w.vc.Close()
	w.vc = nil
	return err
}

// ReadFrame grabs the next frame. Empty grabs during warm-up return
// ErrEmptyFrame so the caller can skip the tick.
func (w *Webcam) ReadFrame() (*gocv.Mat, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !w.vc.Read(&mat) {
		mat.Close()
		return nil, fmt.Errorf("read device %d: no frame", w.deviceID)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	// some drivers only settle on a size once streaming
	w.granted = image.Pt(mat.Cols(), mat.Rows())
	return &mat, nil
}

// SetFPS changes the requested rate, live if the device is open.
// Non-positive values are ignored.
func (w *Webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.fps = fps
	if w.vc != nil {
		w.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (w *Webcam) FPS() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fps
}

func (w *Webcam) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vc != nil
}

func (w *Webcam) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.granted
}
