package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/lensgrid/internal/app"
	"github.com/ayusman/lensgrid/internal/config"
	"github.com/ayusman/lensgrid/internal/display"
	"github.com/ayusman/lensgrid/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options is what the command line controls on top of the settings.
type options struct {
	settings   config.Config
	configPath string
	verbose    bool
}

// newRootCmd builds the command; runner receives the final settings.
func newRootCmd(runner func(context.Context, config.Config) error) *cobra.Command {
	opts := &options{settings: config.Default()}
	var overridable []string

	cmd := &cobra.Command{
		Use:          "lensgrid",
		Short:        "Magnify the webcam image around your index finger",
		Long:         `lensgrid splits the webcam image into a grid whose cells grow near the tip of your index finger and shrink away from it, like a fisheye lens following your hand.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      "15:04:05.00",
				Level:           level,
			}))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd, overridable); err != nil {
				return err
			}
			return runner(cmd.Context(), opts.settings)
		},
	}

	f := cmd.Flags()
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML file with settings; flags take precedence")

	s := &opts.settings
	f.IntVar(&s.Lens.Cols, "cols", s.Lens.Cols, "grid columns")
	f.IntVar(&s.Lens.Rows, "rows", s.Lens.Rows, "grid rows")
	f.Float64Var(&s.Lens.Fisheye.MaxSize, "max-size", s.Lens.Fisheye.MaxSize, "weight of the cell under the finger")
	f.Float64Var(&s.Lens.Fisheye.MinSize, "min-size", s.Lens.Fisheye.MinSize, "weight of the farthest cells")
	f.Float64Var(&s.Lens.Fisheye.Falloff, "falloff", s.Lens.Fisheye.Falloff, "how sharply cells shrink with distance")
	f.Float64Var(&s.Lens.SmoothingRate, "smoothing", s.Lens.SmoothingRate, "focal point smoothing rate in (0, 1]")
	f.Float64Var(&s.Lens.EasingRate, "easing", s.Lens.EasingRate, "cell size easing rate in (0, 1]")
	f.IntVar(&s.Lens.FocalLandmark, "landmark", s.Lens.FocalLandmark, "hand landmark that drives the lens (8 is the index fingertip)")
	f.StringVar(&s.Lens.Interpolator, "interpolator", s.Lens.Interpolator, "cell scaler: nearest, approx-bilinear, bilinear or catmullrom")
	f.StringVar(&s.Lens.Background, "background", s.Lens.Background, "background colour as #rrggbb")
	f.IntVar(&s.Lens.SurfaceWidth, "width", s.Lens.SurfaceWidth, "output width in pixels")
	f.IntVar(&s.Lens.SurfaceHeight, "height", s.Lens.SurfaceHeight, "output height in pixels")
	f.IntVar(&s.Capture.CameraID, "camera", s.Capture.CameraID, "camera device id")
	f.IntVar(&s.Capture.FPS, "fps", s.Capture.FPS, "render frames per second")
	f.Float64Var(&s.Capture.MotionThreshold, "motion-threshold", s.Capture.MotionThreshold, "percent of changed pixels that counts as motion; 0 always tracks")
	f.DurationVar(&s.Capture.StillAfter.Duration, "still-after", s.Capture.StillAfter.Duration, "stop tracking after the scene was still this long")
	f.BoolVar(&s.Output.Window, "window", s.Output.Window, "show the output window")
	f.StringVar(&s.Output.ListenAddr, "listen", s.Output.ListenAddr, "HTTP address for the stream and telemetry; empty disables it")
	f.IntVar(&s.Output.JPEGQuality, "jpeg-quality", s.Output.JPEGQuality, "quality of streamed frames")

	overridable = []string{
		"cols", "rows", "max-size", "min-size", "falloff", "smoothing", "easing",
		"landmark", "interpolator", "background", "width", "height",
		"camera", "fps", "motion-threshold", "still-after",
		"window", "listen", "jpeg-quality",
	}

	return cmd
}

// resolve loads the config file, if any, and reapplies the flags the user
// set explicitly on top of it.
func (o *options) resolve(cmd *cobra.Command, names []string) error {
	if o.configPath == "" {
		return o.settings.Validate()
	}

	set := map[string]string{}
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			set[name] = cmd.Flags().Lookup(name).Value.String()
		}
	}

	loaded, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.settings = loaded

	for name, value := range set {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	return o.settings.Validate()
}

func run(ctx context.Context, settings config.Config) error {
	var hub *server.Hub
	var srv *server.Server
	if settings.Output.ListenAddr != "" {
		hub = server.NewHub()
		srv = server.New(server.Config{Hub: hub})
		if _, err := srv.Start(settings.Output.ListenAddr); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown", "err", err)
			}
		}()
	}

	var presenter display.Presenter = display.Headless{}
	if settings.Output.Window {
		presenter = display.NewWindow("lensgrid")
	}
	defer presenter.Close()

	a, err := app.New(app.Config{
		Settings:  settings,
		Presenter: presenter,
		Hub:       hub,
	})
	if err != nil {
		return err
	}

	err = a.Run(ctx)
	if errors.Is(err, app.ErrQuit) {
		return nil
	}
	return err
}
