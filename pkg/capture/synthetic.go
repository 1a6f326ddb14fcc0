package capture

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// Synthetic is a fake ToF camera looking at a fixed scene: brightness
// rises over four decades from left to right, with a bright blob in the
// middle. Every setting reads out 8-bit counts; longer integrations
// collect proportionally more signal and clip at 255 sooner, so the
// short exposure loses the left side in the noise floor and the long one
// blows out on the right.
type Synthetic struct {
	Width  int
	Height int
	Noise  float64 // stddev of additive sensor noise, in raw counts
	Seed   int64

	mu    sync.Mutex
	label exposure.IntegrationLabel
	rng   *rand.Rand
}

// The sensor ceiling, and the signal multiplier relative to the short
// integration, for each label.
var syntheticSensor = map[exposure.IntegrationLabel]struct{ Scale, Gain float64 }{
	exposure.Short:  {Scale: 255, Gain: 1},
	exposure.Medium: {Scale: 255, Gain: 5},
	exposure.Long:   {Scale: 255, Gain: 20},
}

func NewSynthetic(w, h int) *Synthetic {
	return &Synthetic{Width: w, Height: h, Seed: 1}
}

// Gain is the factor that reprojects a normalized long reading onto the
// short one's scale, i.e. what the fusion config's Gain should be for
// this camera. Unknown labels give 0, which the config treats as unset.
func (s *Synthetic) Gain(short, long exposure.IntegrationLabel) float64 {
	sS, okS := syntheticSensor[short]
	sL, okL := syntheticSensor[long]
	if !okS || !okL {
		return 0
	}
	return sS.Gain / sL.Gain
}

func (s *Synthetic) Configure(ctx context.Context, label exposure.IntegrationLabel) error {
	if _, exists := syntheticSensor[label]; !exists {
		return fmt.Errorf("synthetic camera has no %s setting", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
	return nil
}

func (s *Synthetic) Capture(ctx context.Context) (exposure.Frame, error) {
	if err := ctx.Err(); err != nil {
		return exposure.Frame{}, err
	}
	if s.Width <= 0 || s.Height <= 0 {
		return exposure.Frame{}, fmt.Errorf("synthetic camera is %dx%d", s.Width, s.Height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.Seed))
	}

	sensor := syntheticSensor[s.label]
	g := emath.NewFloatGrid(s.Width, s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			v := sensor.Scale * sensor.Gain * s.radiance(x, y)
			if s.Noise > 0 {
				v += s.rng.NormFloat64() * s.Noise
			}
			g.Set(x, y, emath.Clamp(math.Round(v), 0, sensor.Scale))
		}
	}

	f := exposure.NewFrame(g, sensor.Scale, s.label)
	f.Source = fmt.Sprintf("synthetic-%s", s.label)
	return f, nil
}

// radiance is the scene brightness at a pixel, as a fraction of what
// would just saturate the short exposure.
func (s *Synthetic) radiance(x, y int) float64 {
	fx := 0.0
	if s.Width > 1 {
		fx = float64(x) / float64(s.Width-1)
	}
	fy := 0.5
	if s.Height > 1 {
		fy = float64(y) / float64(s.Height-1)
	}

	ramp := math.Pow(10, 4*fx-4)
	dx, dy := fx-0.5, fy-0.5
	blob := 0.5 * math.Exp(-(dx*dx+dy*dy)/0.01)

	return math.Min(1, ramp+blob)
}
