package fuse

import (
	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// WeightedSigmoid cross-fades the two exposures. The fade weight comes
// from a logistic curve over the brightness of a first-guess estimate,
// centered on mid-grey and clamped to [WeightLow, WeightHigh] so that
// neither exposure is ever thrown away completely:
//
//	out = short*(1-w) + long*w
type WeightedSigmoid struct {
	Params
}

func (ws WeightedSigmoid) Name() string { return WeightedSigmoidName }

func (ws WeightedSigmoid) Blend(short, long exposure.NormalizedFrame) (emath.FloatGrid, error) {
	s, l := unitRange(short.FloatGrid), unitRange(long.FloatGrid)
	w := ws.weights(short, long, s, l)

	out := s.NewFromThis()
	for i := 0; i < out.Len(); i++ {
		out.SetAt(i, s.At(i)*(1-w.At(i))+l.At(i)*w.At(i))
	}
	return out, nil
}

// Weights returns the per-pixel weight given to the long exposure.
func (ws WeightedSigmoid) Weights(short, long exposure.NormalizedFrame) emath.FloatGrid {
	return ws.weights(short, long, unitRange(short.FloatGrid), unitRange(long.FloatGrid))
}

// estimate builds the first guess: the mean of the two, except that
// blown short pixels take long, and long pixels down in the shadows
// take short.
func (ws WeightedSigmoid) estimate(short, long exposure.NormalizedFrame, s, l emath.FloatGrid) emath.FloatGrid {
	mb := ws.Masks
	shortSat := mb.Above(short, ws.SaturationHigh)
	longShadow := mb.Below(long, ws.UnderexposureLow)

	est := s.NewFromThis()
	for i := 0; i < est.Len(); i++ {
		v := (s.At(i) + l.At(i)) / 2
		if shortSat.At(i) {
			v = l.At(i)
		} else if longShadow.At(i) {
			v = s.At(i)
		}
		est.SetAt(i, v)
	}
	return est
}

func (ws WeightedSigmoid) weights(short, long exposure.NormalizedFrame, s, l emath.FloatGrid) emath.FloatGrid {
	brightness := unitRange(ws.estimate(short, long, s, l))
	k, lo, hi := ws.SigmoidStrength, ws.WeightLow, ws.WeightHigh

	return brightness.Map(func(b float64) float64 {
		return emath.Clamp(emath.Logistic(k*(b-0.5)), lo, hi)
	})
}

// unitRange stretches a grid onto [0,1]; a flat grid is left as is
// (clamped), since there is no range to stretch.
func unitRange(g emath.FloatGrid) emath.FloatGrid {
	out, _ := g.RescaleUnit()
	return out.Clamp(0, 1)
}
