package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/lensgrid/internal/config"
)

// execute runs the root command with args and returns the settings the
// runner would have received.
func execute(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	var got config.Config
	cmd := newRootCmd(func(_ context.Context, s config.Config) error {
		got = s
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)
	err := cmd.ExecuteContext(context.Background())
	return got, err
}

func TestRootCmd_Defaults(t *testing.T) {
	got, err := execute(t)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if got != config.Default() {
		t.Errorf("settings = %+v, want defaults", got)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	got, err := execute(t,
		"--cols", "4", "--rows", "2",
		"--falloff", "2.5",
		"--still-after", "750ms",
		"--window=false",
		"--listen", "",
	)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	if got.Lens.Cols != 4 || got.Lens.Rows != 2 {
		t.Errorf("grid = %dx%d, want 4x2", got.Lens.Cols, got.Lens.Rows)
	}
	if got.Lens.Fisheye.Falloff != 2.5 {
		t.Errorf("falloff = %f, want 2.5", got.Lens.Fisheye.Falloff)
	}
	if got.Capture.StillAfter.Duration != 750*time.Millisecond {
		t.Errorf("still after = %v, want 750ms", got.Capture.StillAfter)
	}
	if got.Output.Window || got.Output.ListenAddr != "" {
		t.Errorf("output = %+v", got.Output)
	}
}

func TestRootCmd_ConfigFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lens.toml")
	content := `
[lens]
cols = 8
rows = 6
interpolator = "bilinear"

[capture]
fps = 24
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := execute(t, "--config", path, "--rows", "3")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	if got.Lens.Cols != 8 {
		t.Errorf("cols = %d, want 8 from the file", got.Lens.Cols)
	}
	if got.Lens.Rows != 3 {
		t.Errorf("rows = %d, want 3 from the flag", got.Lens.Rows)
	}
	if got.Lens.Interpolator != "bilinear" || got.Capture.FPS != 24 {
		t.Errorf("file values lost: %+v", got)
	}
}

func TestRootCmd_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero columns", args: []string{"--cols", "0"}},
		{name: "smoothing above one", args: []string{"--smoothing", "1.5"}},
		{name: "unknown interpolator", args: []string{"--interpolator", "sinc"}},
		{name: "fps above cap", args: []string{"--fps", "2000000000"}},
		{name: "missing config file", args: []string{"--config", filepath.Join(os.TempDir(), "does-not-exist.toml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("execute() expected error")
			}
		})
	}

	_, err := execute(t, "--cols", "0")
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error = %v, want %v", err, config.ErrInvalid)
	}
}
