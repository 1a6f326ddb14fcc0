package tonemap

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/tmo"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/fuse"
)

// Global operators compress the fused range as a whole, before local
// equalization. None is the default: the fused frame is already [0,1].
const (
	NoOperator       = "none"
	Fattal02Operator = "fattal02"
)

var Operators = []string{NoOperator, "drago03", "durand", Fattal02Operator, "icam06", "linear", "reinhard05"}

// The operators divide by luminance, so a true zero comes back as NaN
// (which quantizes to white). Inputs are floored at this first.
const operatorFloor = 1.0 / 1024

func ListOperators() string {
	return fmt.Sprintf("%v", Operators)
}

func validOperator(name string) error {
	if name == "" {
		return nil
	}
	for _, op := range Operators {
		if op == name {
			return nil
		}
	}
	return exposure.InvalidConfig("operator", name, "wanted one of "+ListOperators())
}

// The parameter tweaks keep the small, bright, close-range returns a ToF
// sensor sees from blowing out.
func newOperator(name string, img hdr.Image) tmo.ToneMappingOperator {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0
		return op

	case "durand":
		return tmo.NewDefaultDurand(img)

	case "icam06":
		op := tmo.NewDefaultICam06(img)
		op.Contrast = 0.65
		op.MaxClipping = 0.99999
		return op

	case "linear":
		return tmo.NewLinear(img)

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(img)
		op.Chromatic = 0.005
		op.Light = 0.005
		return op
	}

	return nil
}

// perform runs the operator, turning a panic from inside it into an
// error.
func perform(name string, op tmo.ToneMappingOperator) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("operator %s failed: %v", name, r)
		}
	}()
	return op.Perform(), nil
}

// ApplyOperator runs the named global operator over a fused frame and
// returns the result's luminance as a [0,1] grid. A flat frame has no
// range to compress and comes back clamped but otherwise untouched.
func ApplyOperator(name string, ff fuse.FusedFrame) (emath.FloatGrid, error) {
	if err := validOperator(name); err != nil {
		return emath.FloatGrid{}, err
	}
	if name == "" || name == NoOperator {
		return emath.FloatGrid{}, fmt.Errorf("operator %q has nothing to run", name)
	}
	if lo, hi := ff.MinMax(); !(hi > lo) {
		return ff.Clamp(0, 1), nil
	}

	if name == Fattal02Operator {
		f02 := NewDefaultFattal02(ff.FloatGrid)
		f02.WhitePoint = 0.00001 // as close to no blown pixels as we can get
		return f02.Luminance()
	}

	in := fuse.FusedFrame{
		FloatGrid:  ff.Map(func(v float64) float64 { return math.Max(v, operatorFloor) }),
		Normalized: ff.Normalized,
		Strategy:   ff.Strategy,
	}
	out, err := perform(name, newOperator(name, in))
	if err != nil {
		return emath.FloatGrid{}, err
	}

	b := out.Bounds()
	g := emath.NewFloatGrid(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray := color.Gray16Model.Convert(out.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			g.Set(x, y, float64(gray.Y)/0xFFFF)
		}
	}
	return g, nil
}
