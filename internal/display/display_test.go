package display

import (
	"image"
	"image/color"
	"testing"
)

func TestHeadless(t *testing.T) {
	var p Presenter = Headless{}

	quit, err := p.Show(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil || quit {
		t.Errorf("Show() = (%v, %v), want (false, nil)", quit, err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestToMat(t *testing.T) {
	surface := image.NewRGBA(image.Rect(0, 0, 6, 3))
	surface.SetRGBA(1, 2, color.RGBA{R: 200, G: 10, B: 30, A: 255})

	mat, err := ToMat(surface)
	if err != nil {
		t.Fatalf("ToMat() error = %v", err)
	}
	defer mat.Close()

	if mat.Cols() != 6 || mat.Rows() != 3 {
		t.Fatalf("ToMat() size = %dx%d, want 6x3", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 3 {
		t.Fatalf("Channels() = %d, want 3", mat.Channels())
	}

	// OpenCV stores BGR
	vec := mat.GetVecbAt(2, 1)
	if vec[0] != 30 || vec[1] != 10 || vec[2] != 200 {
		t.Errorf("pixel (1,2) = %v, want [30 10 200]", vec)
	}
}
