// Package config holds the tunable parameters of the lens and the run.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/lensgrid/internal/compositor"
	"github.com/ayusman/lensgrid/internal/detector"
	"github.com/ayusman/lensgrid/internal/fisheye"
	"github.com/ayusman/lensgrid/internal/focus"
	"github.com/ayusman/lensgrid/internal/grid"
)

// ErrInvalid is returned by Validate for unusable configurations.
var ErrInvalid = errors.New("invalid configuration")

// MaxFPS bounds the render rate.
const MaxFPS = 240

// Config is the full set of tunables.
type Config struct {
	Lens    Lens    `toml:"lens"`
	Capture Capture `toml:"capture"`
	Output  Output  `toml:"output"`
}

// Lens controls the grid and its motion.
type Lens struct {
	Cols          int            `toml:"cols"`
	Rows          int            `toml:"rows"`
	Fisheye       fisheye.Params `toml:"fisheye"`
	SmoothingRate float64        `toml:"smoothing_rate"`
	EasingRate    float64        `toml:"easing_rate"`
	FocalLandmark int            `toml:"focal_landmark"`
	Interpolator  string         `toml:"interpolator"`
	Background    string         `toml:"background"`
	SurfaceWidth  int            `toml:"surface_width"`
	SurfaceHeight int            `toml:"surface_height"`
}

// Capture controls the camera and the stillness gate.
type Capture struct {
	CameraID int `toml:"camera_id"`
	FPS      int `toml:"fps"`
	// MotionThreshold is the percentage of changed pixels that counts as
	// motion. Zero disables the stillness gate.
	MotionThreshold float64  `toml:"motion_threshold"`
	StillAfter      Duration `toml:"still_after"`
}

// Output controls where rendered frames go.
type Output struct {
	Window bool `toml:"window"`
	// ListenAddr is where the stream and telemetry are served. Empty
	// disables the HTTP server.
	ListenAddr  string `toml:"listen_addr"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// Duration is a time.Duration that decodes from TOML strings like "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the reference configuration: a 720x900 portrait surface
// split into 100 columns and 50 rows.
func Default() Config {
	return Config{
		Lens: Lens{
			Cols: 100,
			Rows: 50,
			Fisheye: fisheye.Params{
				MaxSize: 100,
				MinSize: 4,
				Falloff: 10,
			},
			SmoothingRate: focus.DefaultRate,
			EasingRate:    grid.DefaultEasing,
			FocalLandmark: detector.IndexTip,
			Interpolator:  "nearest",
			Background:    "#d3d3d3",
			SurfaceWidth:  720,
			SurfaceHeight: 900,
		},
		Capture: Capture{
			CameraID:        0,
			FPS:             30,
			MotionThreshold: 0,
			StillAfter:      Duration{2 * time.Second},
		},
		Output: Output{
			Window:      true,
			ListenAddr:  ":8080",
			JPEGQuality: 80,
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	return cfg, cfg.Validate()
}

// Validate fails fast on anything that would break the grid partition or
// the render loop.
func (c Config) Validate() error {
	l := c.Lens
	if l.Cols < 1 || l.Rows < 1 {
		return fmt.Errorf("%w: grid needs at least one column and one row, got %dx%d", ErrInvalid, l.Cols, l.Rows)
	}
	if l.SurfaceWidth < 1 || l.SurfaceHeight < 1 {
		return fmt.Errorf("%w: surface size %dx%d", ErrInvalid, l.SurfaceWidth, l.SurfaceHeight)
	}
	if err := l.Fisheye.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !(l.SmoothingRate > 0 && l.SmoothingRate <= 1) {
		return fmt.Errorf("%w: smoothing rate must be in (0, 1], got %g", ErrInvalid, l.SmoothingRate)
	}
	if !(l.EasingRate > 0 && l.EasingRate <= 1) {
		return fmt.Errorf("%w: easing rate must be in (0, 1], got %g", ErrInvalid, l.EasingRate)
	}
	if l.FocalLandmark < 0 || l.FocalLandmark >= detector.NumLandmarks {
		return fmt.Errorf("%w: focal landmark %d out of range", ErrInvalid, l.FocalLandmark)
	}
	if _, err := compositor.ParseInterpolator(l.Interpolator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := compositor.ParseColor(l.Background); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Capture.FPS < 1 || c.Capture.FPS > MaxFPS {
		return fmt.Errorf("%w: fps must be in [1, %d], got %d", ErrInvalid, MaxFPS, c.Capture.FPS)
	}
	if c.Capture.MotionThreshold < 0 || c.Capture.MotionThreshold > 100 {
		return fmt.Errorf("%w: motion threshold must be a percentage, got %g", ErrInvalid, c.Capture.MotionThreshold)
	}
	if q := c.Output.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("%w: jpeg quality must be in [1, 100], got %d", ErrInvalid, q)
	}
	return nil
}
