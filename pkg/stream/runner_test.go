package stream

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tof-hdr/pkg/capture"
	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/pipeline"
	"github.com/abworrall/tof-hdr/pkg/sink"
	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

func newRunner(t *testing.T, s sink.Sink) *Runner {
	t.Helper()
	p, err := pipeline.New(pipeline.NewConfig())
	require.NoError(t, err)
	return &Runner{
		Camera:   capture.NewSynthetic(24, 16),
		Plan:     capture.DefaultPlan(),
		Pipeline: p,
		Sink:     s,
		Log:      zerolog.Nop(),
	}
}

func TestRunMaxCycles(t *testing.T) {
	shown := 0
	r := newRunner(t, sink.Func(func(ctx context.Context, df tonemap.DisplayFrame) error {
		shown++
		assert.Equal(t, 24, df.Bounds().Dx())
		return nil
	}))
	r.MaxCycles = 3

	var buf bytes.Buffer
	r.Log = zerolog.New(&buf)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Cycles)
	assert.Equal(t, 3, shown)
	assert.LessOrEqual(t, stats.P50, stats.Max)
	assert.Contains(t, buf.String(), "stream stopped")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(t, nil)
	r.Sink = sink.Func(func(context.Context, tonemap.DisplayFrame) error {
		cancel()
		return nil
	})

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cycles)
}

func TestRunReportsCycleErrors(t *testing.T) {
	boom := errors.New("display gone")
	r := newRunner(t, sink.Func(func(context.Context, tonemap.DisplayFrame) error { return boom }))

	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, boom))
}

func TestRunValidates(t *testing.T) {
	r := newRunner(t, nil)
	r.Plan = capture.Plan{}
	_, err := r.Run(context.Background())
	assert.Error(t, err)

	r = newRunner(t, nil)
	r.Camera = nil
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestRunSingleExposurePlan(t *testing.T) {
	r := newRunner(t, nil)
	r.Plan = capture.Plan{Labels: []exposure.IntegrationLabel{exposure.Long}}
	r.MaxCycles = 1

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cycles)
}
