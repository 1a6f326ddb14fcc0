package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/fuse"
	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

// SingleFrameStrategy is the Strategy recorded on the fused frame when
// only one exposure was supplied and nothing was blended.
const SingleFrameStrategy = "single-frame"

// Pipeline runs one fusion cycle at a time: normalize every exposure,
// fold them together short to long with the configured blender, then
// tone map for display. It holds no per-cycle state, so one Pipeline can
// serve many goroutines.
type Pipeline struct {
	cfg     Config
	blender fuse.Blender
	tm      tonemap.ToneMapper
	log     zerolog.Logger
}

type Option func(*Pipeline)

// WithLogger routes the per-stage debug traces somewhere; by default
// they are dropped.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	b, err := cfg.Blender()
	if err != nil {
		return nil, err
	}
	tm, err := cfg.ToneMapper()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, blender: b, tm: tm, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

// Run is the one-shot form: build a pipeline from cfg and run it once.
func Run(frames []exposure.Frame, cfg Config) (tonemap.DisplayFrame, error) {
	p, err := New(cfg)
	if err != nil {
		return tonemap.DisplayFrame{}, err
	}
	return p.Run(frames)
}

func (p *Pipeline) Run(frames []exposure.Frame) (tonemap.DisplayFrame, error) {
	_, df, err := p.RunFused(frames)
	return df, err
}

// RunFused is Run, but also hands back the fused frame, from before it
// was squeezed into 8 bits.
func (p *Pipeline) RunFused(frames []exposure.Frame) (fuse.FusedFrame, tonemap.DisplayFrame, error) {
	ff, err := p.Fuse(frames)
	if err != nil {
		return fuse.FusedFrame{}, tonemap.DisplayFrame{}, err
	}

	df, err := p.tm.Map(ff)
	if err != nil {
		return ff, tonemap.DisplayFrame{}, fmt.Errorf("tonemap: %w", err)
	}
	p.log.Debug().Stringer("display", df).Msg("tonemapped")

	return ff, df, nil
}

// Fuse does everything up to, but not including, tone mapping. Frames
// are folded in label order; when an intermediate fold is flat it is
// carried into the next step unscaled rather than clamped.
func (p *Pipeline) Fuse(frames []exposure.Frame) (fuse.FusedFrame, error) {
	if len(frames) == 0 {
		return fuse.FusedFrame{}, &exposure.DegenerateInputError{What: "need at least one frame", Value: 0}
	}
	for i, f := range frames {
		if err := f.Validate(); err != nil {
			return fuse.FusedFrame{}, fmt.Errorf("frame %d (%s): %w", i, f.Label, err)
		}
	}
	if err := exposure.CheckShapes(frames); err != nil {
		return fuse.FusedFrame{}, err
	}

	sorted := exposure.SortByLabel(frames)
	norms := make([]exposure.NormalizedFrame, len(sorted))
	for i, f := range sorted {
		n, err := exposure.Normalize(f)
		if err != nil {
			return fuse.FusedFrame{}, fmt.Errorf("frame %d (%s): %w", i, f.Label, err)
		}
		norms[i] = n
		p.log.Debug().Stringer("frame", f).Str("normalized", n.Stats()).Msg("normalized")
		p.maybeDumpGrid(n.FloatGrid.ToImg, fmt.Sprintf("%02d-%s-normalized", i, f.Label))
	}

	if len(norms) == 1 {
		out, ok := norms[0].RescaleUnit()
		ff := fuse.FusedFrame{FloatGrid: out, Normalized: ok, Strategy: SingleFrameStrategy}
		p.log.Debug().Stringer("fused", ff).Msg("single frame, nothing to blend")
		return ff, nil
	}

	var ff fuse.FusedFrame
	acc := norms[0]
	for i, next := range norms[1:] {
		var err error
		if ff, err = fuse.Fuse(p.blender, acc, next); err != nil {
			return fuse.FusedFrame{}, fmt.Errorf("fuse %s+%s: %w", acc.Label, next.Label, err)
		}
		if !ff.Normalized {
			p.log.Debug().Str("strategy", ff.Strategy).Msg("fused result is flat, left unscaled")
		}
		p.log.Debug().Stringer("fused", ff).Int("step", i+1).Msg("fused")
		p.maybeDumpGrid(ff.FloatGrid.ToImg, fmt.Sprintf("%02d-fused-%s", i+1, ff.Strategy))

		// The running result stands in as the short side of the next step.
		// A flat result keeps its unscaled values, in units of the short
		// ceiling; anything above 1 there was already beyond the short
		// exposure, so the next step masks it as blown and defers to the
		// longer exposure.
		acc = exposure.Normalized(ff.FloatGrid, acc.Scale, acc.Label)
	}

	return ff, nil
}

func (p *Pipeline) maybeDumpGrid(toImg func(title, filename string) error, name string) {
	if !p.cfg.DumpGrids {
		return
	}
	if err := os.MkdirAll(p.cfg.DumpDir, 0o755); err != nil {
		p.log.Warn().Err(err).Str("dir", p.cfg.DumpDir).Msg("grid dump failed")
		return
	}
	filename := filepath.Join(p.cfg.DumpDir, name+".png")
	if err := toImg(name, filename); err != nil {
		p.log.Warn().Err(err).Str("file", filename).Msg("grid dump failed")
	}
}
