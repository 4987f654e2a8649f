package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel grey level change that counts.
	DiffThreshold = 25
)

// MotionDetector measures how much of the picture changed since the
// previous frame.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage
// of pixels that must change for Detect to report motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether the
// changed share exceeds the threshold, and the share itself in percent.
// The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	cur := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &cur, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&cur)
	}
	gocv.GaussianBlur(cur, &cur, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)

	if !m.hasPrev || m.prev.Rows() != cur.Rows() || m.prev.Cols() != cur.Cols() {
		m.prev.Close()
		m.prev = cur
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.prev, &diff)
	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100.0

	m.prev.Close()
	m.prev = cur

	return changed > m.threshold, changed
}

// Reset forgets the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.Reset()
}

// Gate decides whether a frame is worth sending to the landmark tracker.
// After the scene has been still for a while the gate closes, and the lens
// keeps its frozen focal point until something moves again.
type Gate struct {
	motion     *MotionDetector
	stillAfter time.Duration
	lastMotion time.Time
	now        func() time.Time
}

// NewGate creates a Gate. A threshold of zero or less yields a gate that is
// always open.
func NewGate(threshold float64, stillAfter time.Duration) *Gate {
	g := &Gate{
		stillAfter: stillAfter,
		now:        time.Now,
	}
	if threshold > 0 {
		g.motion = NewMotionDetector(threshold)
	}
	g.lastMotion = g.now()
	return g
}

// Open feeds frame to the motion detector and reports whether tracking
// should run for it.
func (g *Gate) Open(frame *gocv.Mat) bool {
	if g.motion == nil {
		return true
	}

	if moved, _ := g.motion.Detect(frame); moved {
		g.lastMotion = g.now()
		return true
	}
	return g.now().Sub(g.lastMotion) <= g.stillAfter
}

// Close releases the motion detector.
func (g *Gate) Close() {
	if g.motion != nil {
		g.motion.Close()
	}
}
