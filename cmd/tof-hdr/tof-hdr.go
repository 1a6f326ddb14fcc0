package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/abworrall/tof-hdr/pkg/capture"
	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/fuse"
	"github.com/abworrall/tof-hdr/pkg/logging"
	"github.com/abworrall/tof-hdr/pkg/pipeline"
	"github.com/abworrall/tof-hdr/pkg/sink"
	"github.com/abworrall/tof-hdr/pkg/stream"
)

var (
	Log zerolog.Logger

	fVerbosity      int
	fConfigFilename string
	fStrategy       string
	fGain           float64
	fOutputDir      string
	fUpscale        int
	fCycles         int
	fSettle         time.Duration
	fWidth          int
	fHeight         int
	fNoise          float64
	fThreeStop      bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfigFilename, "config", "", "YAML config file (see pkg/pipeline/config.go)")
	flag.StringVar(&fStrategy, "strategy", "", "how to fuse the exposures: "+fuse.ListStrategies())
	flag.Float64Var(&fGain, "gain", 0, "long to short reprojection gain (0 keeps the config value, or the synthetic camera's)")
	flag.StringVar(&fOutputDir, "out", "frames", "dir to write the displayed frames into ('' to discard them)")
	flag.IntVar(&fUpscale, "upscale", 4, "enlarge displayed frames by this factor")
	flag.IntVar(&fCycles, "cycles", 10, "how many fusion cycles to run (0 runs until interrupted)")
	flag.DurationVar(&fSettle, "settle", 0, "wait this long after each exposure change")

	flag.IntVar(&fWidth, "width", 320, "synthetic camera width")
	flag.IntVar(&fHeight, "height", 240, "synthetic camera height")
	flag.Float64Var(&fNoise, "noise", 1.5, "synthetic camera noise, in raw counts")
	flag.BoolVar(&fThreeStop, "medium", false, "bracket short, medium and long, not just short and long")
	flag.Parse()

	Log = logging.NewConsoleLogger(fVerbosity)
	Log.Info().Msg("tof-hdr starting")
}

// With file/dir args, the frames are replayed from disk every cycle;
// without, a synthetic camera is used. The synthetic camera knows its
// own long to short gain; for files it comes from the config.
func newCamera() (capture.Camera, capture.Plan, float64) {
	if flag.NArg() > 0 {
		src, err := capture.LoadFiles(flag.Args()...)
		if err != nil {
			Log.Fatal().Err(err).Msg("load")
		}
		plan := src.Plan()
		plan.Settle = fSettle
		return src, plan, 0
	}

	cam := capture.NewSynthetic(fWidth, fHeight)
	cam.Noise = fNoise
	cam.Seed = time.Now().UnixNano()

	plan := capture.DefaultPlan()
	if fThreeStop {
		plan.Labels = []exposure.IntegrationLabel{exposure.Short, exposure.Medium, exposure.Long}
	}
	plan.Settle = fSettle
	return cam, plan, cam.Gain(exposure.Short, exposure.Long)
}

func main() {
	cfg := pipeline.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(fConfigFilename); err != nil {
			Log.Fatal().Err(err).Msg("config")
		}
	}
	if fStrategy != "" {
		cfg.Strategy = fStrategy
	}
	cfg.Verbosity = fVerbosity

	cam, plan, camGain := newCamera()
	Log.Info().Stringer("plan", plan).Msg("capture plan")
	switch {
	case fGain > 0:
		cfg.Gain = fGain
	case camGain > 0:
		cfg.Gain = camGain
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(Log))
	if err != nil {
		Log.Fatal().Err(err).Msg("pipeline")
	}
	if cfg.Verbosity > 0 {
		Log.Debug().Msgf("Final configuration:-\n\n%s", p.Config().AsYaml())
	}

	var out sink.Sink = sink.Discard
	if fOutputDir != "" {
		out = sink.NewPNGDir(fOutputDir, fUpscale)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := stream.Runner{
		Camera:    cam,
		Plan:      plan,
		Pipeline:  p,
		Sink:      out,
		MaxCycles: fCycles,
		Log:       Log,
	}
	stats, err := r.Run(ctx)
	if err != nil {
		Log.Error().Err(err).Msg("stream")
		os.Exit(1)
	}
	Log.Info().Stringer("stats", stats).Msg("done")
}
