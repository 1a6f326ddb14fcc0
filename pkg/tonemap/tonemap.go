package tonemap

import (
	"fmt"
	"image"
	"math"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/fuse"
)

// DisplayFrame is the 8-bit result of tone mapping, ready for a screen
// or a PNG. The caller owns it.
type DisplayFrame struct {
	*image.Gray
}

func (df DisplayFrame) String() string {
	if df.Gray == nil {
		return "DisplayFrame(nil)"
	}
	return fmt.Sprintf("DisplayFrame%v", df.Bounds().Size())
}

// ToneMapper squeezes a fused [0,1] frame into 8 bits: an optional
// global operator, quantize, then a contrast-limited equalization over a
// grid of tiles (to pull local detail out of the compressed range), then
// a gamma curve.
type ToneMapper struct {
	Operator  string      // global operator, see Operators; "" or "none" skips it
	ClipLimit float64     // histogram clip limit; 0 turns equalization off
	Tiles     image.Point // tile grid, columns x rows
	Gamma     float64     // out = 255*(v/255)^Gamma; <1 brightens shadows
	Equalizer Equalizer   // nil means the DefaultEqualizerName one
}

func DefaultToneMapper() ToneMapper {
	return ToneMapper{
		ClipLimit: 2.0,
		Tiles:     image.Point{8, 8},
		Gamma:     0.8,
		Equalizer: defaultEqualizer(),
	}
}

func (tm ToneMapper) Validate() error {
	if err := validOperator(tm.Operator); err != nil {
		return err
	}
	if tm.ClipLimit < 0 || math.IsNaN(tm.ClipLimit) || math.IsInf(tm.ClipLimit, 0) {
		return exposure.InvalidConfig("clip_limit", tm.ClipLimit, "must be a finite value >= 0")
	}
	if tm.Tiles.X <= 0 || tm.Tiles.Y <= 0 {
		return exposure.InvalidConfig("tile_grid", tm.Tiles, "both dimensions must be > 0")
	}
	if !(tm.Gamma > 0) || math.IsInf(tm.Gamma, 0) {
		return exposure.InvalidConfig("gamma", tm.Gamma, "must be a finite value > 0")
	}
	return nil
}

func (tm ToneMapper) Map(ff fuse.FusedFrame) (DisplayFrame, error) {
	if err := tm.Validate(); err != nil {
		return DisplayFrame{}, err
	}

	grid := ff.FloatGrid
	if tm.runsOperator(ff) {
		var err error
		if grid, err = ApplyOperator(tm.Operator, ff); err != nil {
			return DisplayFrame{}, fmt.Errorf("%s: %w", tm.Operator, err)
		}
	}

	img := Quantize(grid)

	if tm.ClipLimit > 0 && len(img.Pix) > 0 {
		eq := tm.Equalizer
		if eq == nil {
			eq = defaultEqualizer()
		}
		var err error
		if img, err = eq.Equalize(img, tm.ClipLimit, tm.Tiles); err != nil {
			return DisplayFrame{}, fmt.Errorf("%s equalizer: %w", eq.Name(), err)
		}
	}

	lut := GammaLUT(tm.Gamma)
	for i, v := range img.Pix {
		img.Pix[i] = lut[v]
	}

	return DisplayFrame{img}, nil
}

// runsOperator says whether the global operator has anything to do. The
// flat fallback frame (Normalized=false) has no range to compress, and
// goes straight to quantization.
func (tm ToneMapper) runsOperator(ff fuse.FusedFrame) bool {
	if tm.Operator == "" || tm.Operator == NoOperator || !ff.Normalized || ff.Len() == 0 {
		return false
	}
	lo, hi := ff.MinMax()
	return hi > lo
}

// Quantize maps [0,1] onto [0,255], rounding; out of range values clamp.
func Quantize(g emath.FloatGrid) *image.Gray {
	img := image.NewGray(image.Rectangle{Max: g.Dims()})
	for i := 0; i < g.Len(); i++ {
		img.Pix[i] = uint8(math.Round(emath.Clamp01(g.At(i)) * 255))
	}
	return img
}

// GammaLUT precomputes 255*(v/255)^gamma for every 8-bit v.
func GammaLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	for v := range lut {
		out := 255 * math.Pow(float64(v)/255, gamma)
		lut[v] = uint8(emath.Clamp(math.Round(out), 0, 255))
	}
	return lut
}
