package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayusman/lensgrid/internal/geom"
	"github.com/ayusman/lensgrid/internal/grid"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["frames"]; exists {
			t.Error("'frames' reported without a hub")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthReportsFrames(t *testing.T) {
	hub := NewHub()
	s := New(Config{Hub: hub})

	hub.Publish(Frame{Tracking: true})
	hub.Publish(Frame{Tracking: true})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var response struct {
		Frames      uint64 `json:"frames"`
		Tracking    bool   `json:"tracking"`
		GridClients int    `json:"grid_clients"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Frames != 2 || !response.Tracking || response.GridClients != 0 {
		t.Errorf("health = %+v", response)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/stream", "/api/grid", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	s := New(Config{Hub: NewHub()})

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()

	if _, ok := hub.Latest(); ok {
		t.Error("Latest() reported a frame before any Publish")
	}

	if seq := hub.Publish(Frame{JPEG: []byte{1}}); seq != 1 {
		t.Errorf("first Publish() = %d, want 1", seq)
	}
	if seq := hub.Publish(Frame{JPEG: []byte{2}}); seq != 2 {
		t.Errorf("second Publish() = %d, want 2", seq)
	}

	f, ok := hub.Latest()
	if !ok || f.Seq != 2 || f.JPEG[0] != 2 {
		t.Errorf("Latest() = %+v, %v", f, ok)
	}
	if f.At.IsZero() {
		t.Error("Publish should stamp the frame")
	}
}

func TestHub_Next(t *testing.T) {
	hub := NewHub()

	t.Run("returns an already newer frame", func(t *testing.T) {
		hub.Publish(Frame{})
		f, err := hub.Next(context.Background(), 0)
		if err != nil || f.Seq != 1 {
			t.Errorf("Next() = %d, %v", f.Seq, err)
		}
	})

	t.Run("waits for the next publish", func(t *testing.T) {
		done := make(chan uint64, 1)
		go func() {
			f, _ := hub.Next(context.Background(), 1)
			done <- f.Seq
		}()

		time.Sleep(20 * time.Millisecond)
		hub.Publish(Frame{})

		select {
		case seq := <-done:
			if seq != 2 {
				t.Errorf("Next() seq = %d, want 2", seq)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Next() did not wake up")
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := hub.Next(ctx, 100); err == nil {
			t.Error("Next() expected context error")
		}
	})
}

func TestFrame_Telemetry(t *testing.T) {
	f := Frame{
		Seq:   3,
		At:    time.UnixMilli(1500),
		JPEG:  []byte{0xff},
		Focal: geom.SurfacePoint{X: 10, Y: 20},
		Grid:  grid.Snapshot{Width: 400, Height: 100},
	}

	idle := f.Telemetry()
	if idle.Focal != nil {
		t.Error("focal sent while not tracking")
	}
	if idle.At != 1500 || idle.Seq != 3 || idle.Grid.Width != 400 {
		t.Errorf("Telemetry() = %+v", idle)
	}

	f.Tracking = true
	tracking := f.Telemetry()
	if tracking.Focal == nil || *tracking.Focal != f.Focal {
		t.Errorf("Telemetry().Focal = %v, want %v", tracking.Focal, f.Focal)
	}

	raw, err := json.Marshal(tracking)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if _, ok := decoded["grid"]; !ok {
		t.Errorf("telemetry JSON lacks grid: %s", raw)
	}
}
