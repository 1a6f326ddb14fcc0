package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/abworrall/tof-hdr/pkg/capture"
	"github.com/abworrall/tof-hdr/pkg/fuse"
	"github.com/abworrall/tof-hdr/pkg/logging"
	"github.com/abworrall/tof-hdr/pkg/pipeline"
	"github.com/abworrall/tof-hdr/pkg/sink"
	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

var (
	Log zerolog.Logger

	fVerbosity      int
	fConfigFilename string
	fOutputFilename string
	fHDRFilename    string
	fTIFFFilename   string
	fTIFFCeiling    float64
	fUpscale        int
	fStrategy       string
	fEqualizer      string
	fOperator       string
	fGamma          float64
	fClipLimit      float64
	fDumpDir        string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfigFilename, "config", "", "YAML config file (see pkg/pipeline/config.go)")
	flag.StringVar(&fOutputFilename, "o", "out.png", "name of output image file")
	flag.StringVar(&fHDRFilename, "hdr", "", "also write the fused frame to this Radiance .hdr file")
	flag.StringVar(&fTIFFFilename, "tif", "", "also write the fused frame to this 16-bit TIFF")
	flag.Float64Var(&fTIFFCeiling, "tifceiling", sink.DefaultTIFFCeiling, "value that 1.0 maps to in the 16-bit TIFF")
	flag.IntVar(&fUpscale, "upscale", 1, "enlarge the output PNG by this factor")

	flag.StringVar(&fStrategy, "strategy", "", "how to fuse the exposures: "+fuse.ListStrategies())
	flag.StringVar(&fEqualizer, "equalizer", "", "local contrast equalizer: "+tonemap.ListEqualizers())
	flag.StringVar(&fOperator, "operator", "", "global tone mapping operator: "+tonemap.ListOperators())
	flag.Float64Var(&fGamma, "gamma", 0, "display gamma (0 keeps the config value)")
	flag.Float64Var(&fClipLimit, "cliplimit", -1, "equalization clip limit, 0 disables (<0 keeps the config value)")
	flag.StringVar(&fDumpDir, "dump", "", "write intermediate grids as PNGs into this dir")
	flag.Parse()

	Log = logging.NewConsoleLogger(fVerbosity)
	Log.Info().Msg("tof-fuse starting")
}

func main() {
	cfg := pipeline.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(fConfigFilename); err != nil {
			Log.Fatal().Err(err).Msg("config")
		}
	}

	// Override the config file with command line args, if relevant
	if fStrategy != "" {
		cfg.Strategy = fStrategy
	}
	if fEqualizer != "" {
		cfg.Equalizer = fEqualizer
	}
	if fOperator != "" {
		cfg.Operator = fOperator
	}
	if fGamma > 0 {
		cfg.Gamma = fGamma
	}
	if fClipLimit >= 0 {
		cfg.ClipLimit = fClipLimit
	}
	if fDumpDir != "" {
		cfg.DumpGrids, cfg.DumpDir = true, fDumpDir
	}
	cfg.Verbosity = fVerbosity

	p, err := pipeline.New(cfg, pipeline.WithLogger(Log))
	if err != nil {
		Log.Fatal().Err(err).Msg("pipeline")
	}
	if cfg.Verbosity > 0 {
		Log.Debug().Msgf("Final configuration:-\n\n%s", p.Config().AsYaml())
	}

	src, err := capture.LoadFiles(flag.Args()...)
	if err != nil {
		Log.Fatal().Err(err).Msg("load")
	}
	for _, f := range src.Frames() {
		Log.Info().Stringer("frame", f).Msg("loaded")
	}

	ff, df, err := p.RunFused(src.Frames())
	if err != nil {
		Log.Fatal().Err(err).Msg("fuse")
	}
	Log.Info().Stringer("fused", ff).Msg("fused")

	if fHDRFilename != "" {
		if err := sink.WriteHDR(ff, fHDRFilename); err != nil {
			Log.Error().Err(err).Msg("hdr output")
			os.Exit(1)
		}
		Log.Info().Str("file", fHDRFilename).Msg("HDR output file written")
	}
	if fTIFFFilename != "" {
		if err := sink.WriteTIFF16(ff, fTIFFFilename, fTIFFCeiling); err != nil {
			Log.Error().Err(err).Msg("tiff output")
			os.Exit(1)
		}
		Log.Info().Str("file", fTIFFFilename).Msg("TIFF output file written")
	}

	if err := sink.SavePNG(df, fOutputFilename, fUpscale); err != nil {
		Log.Fatal().Err(err).Msg("png output")
	}
	Log.Info().Str("file", fOutputFilename).Msg("LDR output file written")
}
