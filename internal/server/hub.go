package server

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/lensgrid/internal/geom"
	"github.com/ayusman/lensgrid/internal/grid"
)

// Frame is one rendered frame as published by the render loop.
type Frame struct {
	Seq      uint64
	At       time.Time
	JPEG     []byte
	Tracking bool
	Focal    geom.SurfacePoint
	Grid     grid.Snapshot
}

// Telemetry is the JSON form of a Frame sent to websocket clients.
type Telemetry struct {
	Seq      uint64             `json:"seq"`
	At       int64              `json:"timestamp"`
	Tracking bool               `json:"tracking"`
	Focal    *geom.SurfacePoint `json:"focal,omitempty"`
	Grid     grid.Snapshot      `json:"grid"`
}

// Telemetry strips the image from f.
func (f Frame) Telemetry() Telemetry {
	t := Telemetry{
		Seq:      f.Seq,
		At:       f.At.UnixMilli(),
		Tracking: f.Tracking,
		Grid:     f.Grid,
	}
	if f.Tracking {
		focal := f.Focal
		t.Focal = &focal
	}
	return t
}

// Hub holds the most recent frame and wakes up readers when a new one is
// published. Slow readers skip frames rather than queueing them.
type Hub struct {
	mu      sync.RWMutex
	latest  Frame
	seq     uint64
	changed chan struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{changed: make(chan struct{})}
}

// Publish stores f as the latest frame and assigns its sequence number.
// The Hub takes ownership of f's slices.
func (h *Hub) Publish(f Frame) uint64 {
	h.mu.Lock()
	h.seq++
	f.Seq = h.seq
	if f.At.IsZero() {
		f.At = time.Now()
	}
	h.latest = f
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
	return f.Seq
}

// Latest returns the most recent frame. ok is false before the first
// Publish.
func (h *Hub) Latest() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.seq > 0
}

// Next blocks until a frame newer than after is available or ctx is done.
func (h *Hub) Next(ctx context.Context, after uint64) (Frame, error) {
	for {
		h.mu.RLock()
		f, changed := h.latest, h.changed
		seq := h.seq
		h.mu.RUnlock()

		if seq > after {
			return f, nil
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-changed:
		}
	}
}
