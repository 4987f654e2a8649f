package detector

import (
	"errors"
	"math"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/lensgrid/internal/geom"
)

const epsilon = 1e-9

func TestHandLandmarks_Landmark(t *testing.T) {
	hand := PointingLandmarks(0.3, 0.4)

	t.Run("index tip is the pointing position", func(t *testing.T) {
		p, ok := hand.Landmark(IndexTip)
		if !ok {
			t.Fatal("Landmark(IndexTip) not ok")
		}
		if math.Abs(p.X-0.3) > epsilon || math.Abs(p.Y-0.4) > epsilon {
			t.Errorf("Landmark(IndexTip) = %+v, want (0.3, 0.4)", p)
		}
	})

	t.Run("out of range index", func(t *testing.T) {
		for _, i := range []int{-1, NumLandmarks, 100} {
			if _, ok := hand.Landmark(i); ok {
				t.Errorf("Landmark(%d) should not be ok", i)
			}
		}
	})

	t.Run("nil hand", func(t *testing.T) {
		var h *HandLandmarks
		if _, ok := h.Landmark(IndexTip); ok {
			t.Error("Landmark on nil hand should not be ok")
		}
	})
}

func TestPointingLandmarks(t *testing.T) {
	hand := PointingLandmarks(0.5, 0.2)

	if hand.Handedness != "Right" {
		t.Errorf("expected handedness Right, got %s", hand.Handedness)
	}

	// index finger extended: tip well above its MCP
	if ext := hand.Points[IndexMCP].Y - hand.Points[IndexTip].Y; ext < 0.15 {
		t.Errorf("index finger not extended (extension %f)", ext)
	}

	// others curled
	for _, f := range [][2]int{{MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
		if ext := hand.Points[f[0]].Y - hand.Points[f[1]].Y; ext > 0.05 {
			t.Errorf("finger %d appears extended (extension %f)", f[1], ext)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{PointingLandmarks(0.1, 0.2)})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("full hand", func(t *testing.T) {
		line := `{"hands":[{"points":[` + repeatPoint(NumLandmarks) + `],"handedness":"Left","score":0.8}]}` + "\n"

		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != "Left" || hands[0].Score != 0.8 {
			t.Errorf("unexpected hand metadata: %+v", hands[0])
		}
		if hands[0].Points[IndexTip].X != 0.25 {
			t.Errorf("IndexTip.X = %f, want 0.25", hands[0].Points[IndexTip].X)
		}
	})

	t.Run("truncated hand is dropped", func(t *testing.T) {
		line := `{"hands":[{"points":[` + repeatPoint(5) + `]}]}`

		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected truncated hand to be dropped, got %d hands", len(hands))
		}
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil || len(hands) != 0 {
			t.Errorf("parseResponse() = %v, %v", hands, err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"hands":`)); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func repeatPoint(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":0.25,"y":0.75,"z":0}`
	}
	return s
}

func TestResult_Focal(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		wantOK bool
		want   geom.Normalized
	}{
		{name: "nil result", result: nil},
		{name: "error", result: &Result{Hands: []HandLandmarks{PointingLandmarks(0.5, 0.5)}, Err: errors.New("boom")}},
		{name: "no hands", result: &Result{}},
		{
			name:   "first hand wins",
			result: &Result{Hands: []HandLandmarks{PointingLandmarks(0.1, 0.2), PointingLandmarks(0.9, 0.9)}},
			wantOK: true,
			want:   geom.Normalized{X: 0.1, Y: 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := tt.result.Focal(IndexTip)
			if ok != tt.wantOK {
				t.Fatalf("Focal() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (math.Abs(p.X-tt.want.X) > epsilon || math.Abs(p.Y-tt.want.Y) > epsilon) {
				t.Errorf("Focal() = %+v, want %+v", p, tt.want)
			}
		})
	}
}

func TestTracker(t *testing.T) {
	mock := NewMockDetector()
	mock.SetHands([]HandLandmarks{PointingLandmarks(0.6, 0.3)})

	tr := NewTracker(mock)
	tr.Start()
	tr.Start() // no-op
	defer tr.Stop()

	if tr.Latest() != nil {
		t.Fatal("Latest() should be nil before any frame")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if !tr.Submit(&frame) {
		t.Fatal("Submit() on idle tracker should be accepted")
	}

	res := waitForResult(t, tr, 1)
	p, ok := res.Focal(IndexTip)
	if !ok || math.Abs(p.X-0.6) > epsilon || math.Abs(p.Y-0.3) > epsilon {
		t.Errorf("Focal() = %+v, %v", p, ok)
	}

	t.Run("failed detection publishes an empty result", func(t *testing.T) {
		mock.SetError(errors.New("model crashed"))
		for !tr.Submit(&frame) {
			time.Sleep(time.Millisecond)
		}
		res := waitForResult(t, tr, res.Seq+1)
		if _, ok := res.Focal(IndexTip); ok {
			t.Error("failed detection should have no focal point")
		}
	})

	t.Run("empty frames are rejected", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()
		if tr.Submit(&empty) {
			t.Error("Submit() accepted an empty frame")
		}
		if tr.Submit(nil) {
			t.Error("Submit() accepted nil")
		}
	})
}

func TestTracker_StopWithoutStart(t *testing.T) {
	tr := NewTracker(NewMockDetector())
	tr.Stop()
}

func waitForResult(t *testing.T, tr *Tracker, seq uint64) *Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r := tr.Latest(); r != nil && r.Seq >= seq {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no result with seq >= %d", seq)
	return nil
}
