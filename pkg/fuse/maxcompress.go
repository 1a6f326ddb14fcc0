package fuse

import (
	"math"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// MaxCompress takes the brighter of the two readings at each pixel.
// Where both exposures are blown out, the raw values carry nothing but
// clipping noise, so it uses a box-blurred long exposure instead and
// then applies a power-law (v^CompressExponent) to that region to pull
// some gradient back out of it.
type MaxCompress struct {
	Params
}

func (mc MaxCompress) Name() string { return MaxCompressName }

func (mc MaxCompress) Blend(short, long exposure.NormalizedFrame) (emath.FloatGrid, error) {
	mb := mc.Masks
	bothOver := mb.Above(short, mc.SaturationHigh).And(mb.Above(long, mc.SaturationHigh))

	var blurred emath.FloatGrid
	if bothOver.Count() > 0 {
		blurred = long.BoxBlur(mc.BlurRadius)
	}

	out := short.NewFromThis()
	for i := 0; i < out.Len(); i++ {
		if bothOver.At(i) {
			out.SetAt(i, math.Pow(blurred.At(i), mc.CompressExponent))
		} else {
			out.SetAt(i, math.Max(short.At(i), long.At(i)))
		}
	}
	return out, nil
}
