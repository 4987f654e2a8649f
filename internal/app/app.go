// Package app runs the lens: it reads the camera, feeds the hand tracker,
// advances the lens once per frame and hands the result to the window and
// the HTTP stream.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ayusman/lensgrid/internal/capture"
	"github.com/ayusman/lensgrid/internal/compositor"
	"github.com/ayusman/lensgrid/internal/config"
	"github.com/ayusman/lensgrid/internal/detector"
	"github.com/ayusman/lensgrid/internal/display"
	"github.com/ayusman/lensgrid/internal/lens"
	"github.com/ayusman/lensgrid/internal/server"
)

// ErrQuit is returned by Run when the viewer closed the window.
var ErrQuit = errors.New("quit requested")

// Config holds the collaborators of the application. Nil collaborators
// get defaults built from Settings.
type Config struct {
	Settings config.Config
	// Camera defaults to the device Settings.Capture.CameraID.
	Camera capture.Camera
	// Detector defaults to MediaPipe, falling back to a detector that never
	// finds a hand.
	Detector detector.Detector
	// Presenter defaults to display.Headless.
	Presenter display.Presenter
	// Hub, when set, receives every rendered frame.
	Hub *server.Hub
}

// App is the main application that renders the lens.
type App struct {
	config    Config
	settings  config.Config
	camera    capture.Camera
	gate      *capture.Gate
	detector  detector.Detector
	tracker   *detector.Tracker
	lens      *lens.Lens
	presenter display.Presenter
	hub       *server.Hub
	logger    *log.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool

	frames   atomic.Uint64
	notReady atomic.Uint64
}

// New validates the settings and builds the application.
func New(cfg Config) (*App, error) {
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}

	interp, err := compositor.ParseInterpolator(s.Lens.Interpolator)
	if err != nil {
		return nil, err
	}
	bg, err := compositor.ParseColor(s.Lens.Background)
	if err != nil {
		return nil, err
	}

	l, err := lens.New(lens.Options{
		Cols:          s.Lens.Cols,
		Rows:          s.Lens.Rows,
		Width:         s.Lens.SurfaceWidth,
		Height:        s.Lens.SurfaceHeight,
		Params:        s.Lens.Fisheye,
		SmoothingRate: s.Lens.SmoothingRate,
		EasingRate:    s.Lens.EasingRate,
		Compositor:    compositor.New(compositor.WithInterpolator(interp), compositor.WithBackground(bg)),
	})
	if err != nil {
		return nil, fmt.Errorf("create lens: %w", err)
	}

	a := &App{
		config:    cfg,
		settings:  s,
		camera:    cfg.Camera,
		gate:      capture.NewGate(s.Capture.MotionThreshold, s.Capture.StillAfter.Duration),
		detector:  cfg.Detector,
		lens:      l,
		presenter: cfg.Presenter,
		hub:       cfg.Hub,
		logger:    log.With("run", uuid.New().String()[:8]),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(s.Capture.CameraID,
			capture.WithResolution(s.Lens.SurfaceWidth, s.Lens.SurfaceHeight),
			capture.WithFPS(s.Capture.FPS),
		)
	}
	a.camera.SetFPS(s.Capture.FPS)

	if a.presenter == nil {
		a.presenter = display.Headless{}
	}

	// Try MediaPipe first, fall back to a detector that sees nothing
	if a.detector == nil {
		dcfg := detector.DefaultConfig()
		if mp, err := detector.NewMediaPipeDetector(dcfg); err == nil {
			a.detector = mp
			a.logger.Info("using MediaPipe hand detection")
		} else {
			a.logger.Warn("MediaPipe not available, the lens will stay uniform", "err", err)
			a.detector = detector.NewMockDetector()
		}
	}
	a.tracker = detector.NewTracker(a.detector)

	return a, nil
}

// Run opens the camera and renders until ctx is done, Stop is called or
// the viewer quits. It must be called from the goroutine that owns the
// presenter.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app is already running")
	}
	if err := a.camera.Open(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("open camera: %w", err)
	}
	a.running = true
	a.stopCh = make(chan struct{})
	stop := a.stopCh
	a.mu.Unlock()

	a.tracker.Start()
	a.logger.Info("lens started",
		"grid", fmt.Sprintf("%dx%d", a.settings.Lens.Cols, a.settings.Lens.Rows),
		"surface", fmt.Sprintf("%dx%d", a.settings.Lens.SurfaceWidth, a.settings.Lens.SurfaceHeight),
		"fps", a.settings.Capture.FPS,
		"video", a.camera.Size(),
	)

	err := a.runLoop(ctx, stop)

	a.shutdown()
	return err
}

// Stop asks a running Run to return.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
}

func (a *App) shutdown() {
	a.tracker.Stop()

	if err := a.camera.Close(); err != nil {
		a.logger.Error("closing camera", "err", err)
	}
	a.gate.Close()
	if err := a.detector.Close(); err != nil {
		a.logger.Error("closing detector", "err", err)
	}

	a.mu.Lock()
	a.running = false
	a.stopCh = nil
	a.mu.Unlock()

	a.logger.Info("lens stopped",
		"frames", a.frames.Load(),
		"not_ready", a.notReady.Load(),
		"dropped", a.tracker.Dropped(),
	)
}

// Lens returns the lens being driven.
func (a *App) Lens() *lens.Lens {
	return a.lens
}

// Frames returns how many frames were rendered.
func (a *App) Frames() uint64 {
	return a.frames.Load()
}
