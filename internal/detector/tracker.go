package detector

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/lensgrid/internal/geom"
)

// Result is the outcome of one detection run.
type Result struct {
	Hands []HandLandmarks
	Err   error
	At    time.Time
	Seq   uint64
}

// Focal returns landmark index of the first detected hand. ok is false
// when the run failed or found no hand.
func (r *Result) Focal(index int) (p geom.Normalized, ok bool) {
	if r == nil || r.Err != nil || len(r.Hands) == 0 {
		return geom.Normalized{}, false
	}
	return r.Hands[0].Landmark(index)
}

// Tracker runs a Detector on its own goroutine so slow inference never
// holds up rendering. The renderer submits frames without blocking and
// reads whatever result is freshest.
type Tracker struct {
	detector Detector
	frames   chan *gocv.Mat
	latest   atomic.Pointer[Result]
	seq      atomic.Uint64
	dropped  atomic.Uint64

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTracker wraps d. Call Start before submitting frames.
func NewTracker(d Detector) *Tracker {
	return &Tracker{
		detector: d,
		frames:   make(chan *gocv.Mat, 1),
	}
}

// Start launches the inference goroutine. Starting twice is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopCh != nil {
		return
	}
	t.stopCh = make(chan struct{})
	t.wg.Add(1)
	go t.run(t.stopCh)
}

// Stop halts inference and waits for the goroutine to exit. Frames still
// queued are released.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopCh == nil {
		t.mu.Unlock()
		return
	}
	close(t.stopCh)
	t.stopCh = nil
	t.mu.Unlock()

	t.wg.Wait()

	for {
		select {
		case f := <-t.frames:
			f.Close()
		default:
			return
		}
	}
}

// Submit queues a copy of frame for inference. It returns false when the
// detector is still busy with an earlier frame; the frame is then dropped.
func (t *Tracker) Submit(frame *gocv.Mat) bool {
	if frame == nil || frame.Empty() {
		return false
	}

	clone := frame.Clone()
	select {
	case t.frames <- &clone:
		return true
	default:
		clone.Close()
		t.dropped.Add(1)
		return false
	}
}

// Latest returns the most recent result, or nil before the first run
// has finished.
func (t *Tracker) Latest() *Result {
	return t.latest.Load()
}

// Dropped returns how many submitted frames were skipped.
func (t *Tracker) Dropped() uint64 {
	return t.dropped.Load()
}

func (t *Tracker) run(stop <-chan struct{}) {
	defer t.wg.Done()

	for {
		select {
		case <-stop:
			return
		case frame := <-t.frames:
			hands, err := t.detector.Detect(frame)
			frame.Close()

			if err != nil {
				log.Warn("hand detection failed", "err", err)
			}

			t.latest.Store(&Result{
				Hands: hands,
				Err:   err,
				At:    time.Now(),
				Seq:   t.seq.Add(1),
			})
		}
	}
}
