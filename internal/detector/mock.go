package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PointingLandmarks returns a right hand with the index finger extended and
// its tip at (x, y) in normalized image coordinates.
func PointingLandmarks(x, y float64) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: x + 0.02, Y: y + 0.35}

	h.Points[ThumbCMC] = Point3D{X: x + 0.06, Y: y + 0.31}
	h.Points[ThumbMCP] = Point3D{X: x + 0.08, Y: y + 0.27}
	h.Points[ThumbIP] = Point3D{X: x + 0.06, Y: y + 0.24}
	h.Points[ThumbTip] = Point3D{X: x + 0.03, Y: y + 0.23}

	// index finger straight up to (x, y)
	h.Points[IndexMCP] = Point3D{X: x + 0.01, Y: y + 0.20}
	h.Points[IndexPIP] = Point3D{X: x + 0.005, Y: y + 0.12}
	h.Points[IndexDIP] = Point3D{X: x + 0.002, Y: y + 0.06}
	h.Points[IndexTip] = Point3D{X: x, Y: y, Z: -0.03}

	// remaining fingers curled
	h.Points[MiddleMCP] = Point3D{X: x - 0.02, Y: y + 0.21}
	h.Points[MiddlePIP] = Point3D{X: x - 0.02, Y: y + 0.19, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: x - 0.015, Y: y + 0.22, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: x - 0.01, Y: y + 0.24, Z: -0.02}

	h.Points[RingMCP] = Point3D{X: x - 0.05, Y: y + 0.22}
	h.Points[RingPIP] = Point3D{X: x - 0.05, Y: y + 0.20, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: x - 0.045, Y: y + 0.23, Z: -0.04}
	h.Points[RingTip] = Point3D{X: x - 0.04, Y: y + 0.25, Z: -0.02}

	h.Points[PinkyMCP] = Point3D{X: x - 0.08, Y: y + 0.24}
	h.Points[PinkyPIP] = Point3D{X: x - 0.08, Y: y + 0.22, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: x - 0.075, Y: y + 0.25, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: x - 0.07, Y: y + 0.27, Z: -0.02}

	return h
}
