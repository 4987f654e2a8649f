package app

import (
	"context"
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/lensgrid/internal/capture"
	"github.com/ayusman/lensgrid/internal/display"
	"github.com/ayusman/lensgrid/internal/geom"
	"github.com/ayusman/lensgrid/internal/server"
)

// runLoop renders one frame per tick until told to stop.
//
// Per tick:
// 1. Read a frame; an empty or failed read leaves the video not ready
// 2. Hand the frame to the tracker unless the scene has been still
// 3. Take the focal landmark of the freshest detection, if any
// 4. Advance the lens with that point and the frame
// 5. Present the surface and publish it to the hub
func (a *App) runLoop(ctx context.Context, stop <-chan struct{}) error {
	ticker := time.NewTicker(time.Second / time.Duration(a.settings.Capture.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-ticker.C:
			quit, err := a.step()
			if err != nil {
				return err
			}
			if quit {
				a.logger.Info("quit requested from window")
				return ErrQuit
			}
		}
	}
}

// step renders a single frame.
func (a *App) step() (bool, error) {
	mat, err := a.camera.ReadFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrEmptyFrame) {
			a.logger.Warn("reading frame", "err", err)
		}
		mat = nil
	}
	if mat != nil {
		defer mat.Close()
	}

	active := mat != nil && a.gate.Open(mat)
	if active {
		a.tracker.Submit(mat)
	}

	// a closed gate freezes the focal point like a missed detection
	var raw *geom.Normalized
	if active {
		if p, ok := a.tracker.Latest().Focal(a.settings.Lens.FocalLandmark); ok {
			raw = &p
		}
	}

	var frame image.Image
	if mat != nil {
		frame, err = mat.ToImage()
		if err != nil {
			a.logger.Warn("converting frame", "err", err)
			frame = nil
		}
	}

	res := a.lens.Tick(raw, frame)
	if !res.Ready {
		a.notReady.Add(1)
		a.logger.Debug("video not ready, skipping frame")
		return false, nil
	}
	a.frames.Add(1)

	surface := a.lens.Surface()
	quit, err := a.presenter.Show(surface)
	if err != nil {
		if errors.Is(err, display.ErrClosed) {
			return true, nil
		}
		return false, err
	}

	if a.hub != nil {
		a.publish(surface, res.Tracking, res.Focal)
	}
	return quit, nil
}

// publish encodes the surface and hands it to the hub with the grid state.
func (a *App) publish(surface *image.RGBA, tracking bool, focal geom.SurfacePoint) {
	mat, err := display.ToMat(surface)
	if err != nil {
		a.logger.Warn("encoding surface", "err", err)
		return
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, a.settings.Output.JPEGQuality})
	if err != nil {
		a.logger.Warn("encoding surface", "err", err)
		return
	}
	jpeg := buf.GetBytes()
	buf.Close()

	a.hub.Publish(server.Frame{
		JPEG:     jpeg,
		Tracking: tracking,
		Focal:    focal,
		Grid:     a.lens.Grid(),
	})
}
