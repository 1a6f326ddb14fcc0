package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/rs/zerolog"

	"github.com/abworrall/tof-hdr/pkg/capture"
	"github.com/abworrall/tof-hdr/pkg/pipeline"
	"github.com/abworrall/tof-hdr/pkg/sink"
)

// Latencies are recorded in microseconds, from 1us to a minute.
const (
	minLatency = 1
	maxLatency = int64(time.Minute / time.Microsecond)
)

// Runner is the acquisition loop: bracket a set of exposures off the
// camera, fuse and tone map them, show the result, repeat.
type Runner struct {
	Camera    capture.Camera
	Plan      capture.Plan
	Pipeline  *pipeline.Pipeline
	Sink      sink.Sink
	MaxCycles int // 0 means run until ctx is cancelled
	Log       zerolog.Logger
}

// Stats summarizes a run. Latencies cover one whole cycle, capture
// included.
type Stats struct {
	Cycles int
	P50    time.Duration
	P99    time.Duration
	Max    time.Duration
	Mean   time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d cycles, latency p50 %s, p99 %s, max %s", s.Cycles, s.P50, s.P99, s.Max)
}

func (r *Runner) validate() error {
	switch {
	case r.Camera == nil:
		return fmt.Errorf("runner has no camera")
	case r.Pipeline == nil:
		return fmt.Errorf("runner has no pipeline")
	case len(r.Plan.Labels) == 0:
		return fmt.Errorf("runner has an empty capture plan")
	}
	return nil
}

// Run loops until MaxCycles is reached or ctx is cancelled; cancellation
// is a normal way to stop and is not reported as an error. Any failing
// cycle ends the run.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if err := r.validate(); err != nil {
		return Stats{}, err
	}
	out := r.Sink
	if out == nil {
		out = sink.Discard
	}

	hist := hdrhistogram.New(minLatency, maxLatency, 3)
	stats := Stats{}

	defer func() {
		r.Log.Info().
			Int("cycles", stats.Cycles).
			Dur("p50", stats.P50).
			Dur("p99", stats.P99).
			Dur("max", stats.Max).
			Msg("stream stopped")
	}()

	for r.MaxCycles <= 0 || stats.Cycles < r.MaxCycles {
		start := time.Now()

		err := r.cycle(ctx, out)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, nil
		} else if err != nil {
			return stats, fmt.Errorf("cycle %d: %w", stats.Cycles, err)
		}

		elapsed := time.Since(start)
		if err := hist.RecordValue(clampLatency(elapsed)); err != nil {
			r.Log.Warn().Err(err).Dur("elapsed", elapsed).Msg("latency not recorded")
		}
		stats.Cycles++
		stats.fill(hist)

		r.Log.Debug().Int("cycle", stats.Cycles).Dur("elapsed", elapsed).Msg("cycle done")
	}

	return stats, nil
}

func (r *Runner) cycle(ctx context.Context, out sink.Sink) error {
	frames, err := capture.Bracket(ctx, r.Camera, r.Plan)
	if err != nil {
		return err
	}
	df, err := r.Pipeline.Run(frames)
	if err != nil {
		return err
	}
	return out.Show(ctx, df)
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatency {
		return minLatency
	}
	if us > maxLatency {
		return maxLatency
	}
	return us
}

func (s *Stats) fill(h *hdrhistogram.Histogram) {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	s.P50 = us(h.ValueAtQuantile(50))
	s.P99 = us(h.ValueAtQuantile(99))
	s.Max = us(h.Max())
	s.Mean = time.Duration(h.Mean() * float64(time.Microsecond))
}
