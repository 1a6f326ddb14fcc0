package tonemap

// Fattal '02, "Gradient Domain High Dynamic Range Compression", on a
// single luminance channel. Follows the PFSTMO implementation.

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// Fattal02 attenuates the large gradients of the log luminance, keeping
// the small ones, then rebuilds luminance by solving a Poisson equation.
// Big jumps (a bright close-range return next to a dim far wall) shrink
// while surface detail stays.
type Fattal02 struct {
	DetailLevel int // pyramid levels below this keep their gradients
	Noise       float64
	Alpha       float64
	Beta        float64
	Gamma       float64
	BlackPoint  float64 // percent of pixels clipped to black
	WhitePoint  float64 // percent of pixels clipped to white

	Input emath.FloatGrid

	// Called with each intermediate grid, if set
	Dump func(g emath.FloatGrid, name string)
}

// NewDefaultFattal02 uses the PFSTMO defaults for the FFT solver, see
// https://www.mankier.com/1/pfstmo_fattal02
func NewDefaultFattal02(g emath.FloatGrid) *Fattal02 {
	return &Fattal02{
		DetailLevel: 3,
		Noise:       0.002,
		Alpha:       1.0,
		Beta:        0.9,
		Gamma:       0.8,
		BlackPoint:  0.1,
		WhitePoint:  0.5,
		Input:       g,
	}
}

// Perform implements mdouchement/hdr/tmo:ToneMappingOperator. A grid it
// can't work on comes back black.
func (f02 *Fattal02) Perform() image.Image {
	out := image.NewGray16(image.Rectangle{Max: f02.Input.Dims()})
	L, err := f02.Luminance()
	if err != nil {
		return out
	}
	for y := 0; y < L.Dy(); y++ {
		for x := 0; x < L.Dx(); x++ {
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(emath.Clamp01(L.Get(x, y)) * 0xFFFF))})
		}
	}
	return out
}

// Luminance runs the operator and returns the compressed luminance on
// [0,1].
func (f02 *Fattal02) Luminance() (emath.FloatGrid, error) {
	width, height := f02.Input.Dx(), f02.Input.Dy()
	if width < 2 || height < 2 {
		return emath.FloatGrid{}, &exposure.DegenerateInputError{What: fmt.Sprintf("fattal02 needs at least 2x2, got %dx%d", width, height)}
	}

	H, err := f02.logLuminance()
	if err != nil {
		return emath.FloatGrid{}, err
	}
	pyramid := f02.gaussianPyramid(H)
	phi := f02.attenuation(pyramid)
	divG := f02.divergence(H, phi)

	U, err := emath.SolvePoisson(divG, false)
	if err != nil {
		return emath.FloatGrid{}, err
	}
	f02.dump(U, "fattal02-solved")

	return f02.exponentiate(U), nil
}

func (f02 *Fattal02) dump(g emath.FloatGrid, name string) {
	if f02.Dump != nil {
		f02.Dump(g, name)
	}
}

// logLuminance maps the input onto log(100*v + 1e-4), v stretched to
// [0,1]; black ends up at about -9.2.
func (f02 *Fattal02) logLuminance() (emath.FloatGrid, error) {
	min, max := f02.Input.MinMax()
	if !(max > min) {
		return emath.FloatGrid{}, &exposure.DegenerateInputError{What: "fattal02 needs some dynamic range", Value: max - min}
	}
	H := f02.Input.Map(func(v float64) float64 {
		return math.Log(100*(v-min)/(max-min) + 1e-4)
	})
	f02.dump(H, "fattal02-logluminance")
	return H, nil
}

// gaussianPyramid halves the grid until it would drop below 8 pixels.
func (f02 *Fattal02) gaussianPyramid(H emath.FloatGrid) []emath.FloatGrid {
	nLevels := 0
	for minDim := min(H.Dx(), H.Dy()); minDim >= 8; minDim /= 2 {
		nLevels++
	}
	if nLevels == 0 {
		nLevels = 1
	}

	pyramid := make([]emath.FloatGrid, nLevels)
	pyramid[0] = H.Copy()
	for k := 1; k < nLevels; k++ {
		pyramid[k] = pyramid[k-1].GaussianBlur().DownSample()
	}
	return pyramid
}

// attenuation builds PHI, the gradient attenuation factor per pixel,
// walking down from the coarsest level.
func (f02 *Fattal02) attenuation(pyramid []emath.FloatGrid) emath.FloatGrid {
	nLevels := len(pyramid)

	phi := pyramid[nLevels-1].Map(func(float64) float64 { return 1 })
	for k := nLevels - 1; k >= 0; k-- {
		grads, avgGrad := pyramid[k].Gradients(k)

		// only attenuate levels >= DetailLevel, but always the coarsest
		if k >= f02.DetailLevel || k == nLevels-1 {
			a := f02.Alpha * avgGrad
			for i := 0; i < phi.Len(); i++ {
				grad := grads.At(i)
				value := 1.0
				if grad > 1e-4 && a > 0 {
					value = a / (grad + f02.Noise) * math.Pow((grad+f02.Noise)/a, f02.Beta)
				}
				phi.SetAt(i, phi.At(i)*value)
			}
		}

		if k > 0 {
			phi = phi.UpSample(pyramid[k-1].Dx(), pyramid[k-1].Dy()).GaussianBlur()
		}
	}

	f02.dump(phi, "fattal02-attenuation")
	return phi
}

// divergence of the attenuated gradient field. The FFT solver assumes
// H(-1) = H(1) rather than H(-1) = H(0), so the boundaries are
// assembled to match.
func (f02 *Fattal02) divergence(H, PHI emath.FloatGrid) emath.FloatGrid {
	width, height := H.Dx(), H.Dy()
	Gx := H.NewFromThis()
	Gy := H.NewFromThis()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			yp1, xp1 := y+1, x+1
			if yp1 >= height {
				yp1 = height - 2
			}
			if xp1 >= width {
				xp1 = width - 2
			}

			// forward differences in H, so PHI is averaged between points
			Gx.Set(x, y, (H.Get(xp1, y)-H.Get(x, y))*0.5*(PHI.Get(xp1, y)+PHI.Get(x, y)))
			Gy.Set(x, y, (H.Get(x, yp1)-H.Get(x, y))*0.5*(PHI.Get(x, yp1)+PHI.Get(x, y)))
		}
	}

	divG := H.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := Gx.Get(x, y) + Gy.Get(x, y)
			if x > 0 {
				val -= Gx.Get(x-1, y)
			} else {
				val += Gx.Get(x, y)
			}
			if y > 0 {
				val -= Gy.Get(x, y-1)
			} else {
				val += Gy.Get(x, y)
			}
			divG.Set(x, y, val)
		}
	}

	f02.dump(divG, "fattal02-divergence")
	return divG
}

// exponentiate takes the solution back out of log space, and
// renormalizes after clipping the Black/WhitePoint percentiles.
func (f02 *Fattal02) exponentiate(U emath.FloatGrid) emath.FloatGrid {
	L := U.Map(func(u float64) float64 { return math.Exp(f02.Gamma*u) - 1e-4 })

	lo, hi := L.Percentiles(0.01*f02.BlackPoint, 1-0.01*f02.WhitePoint)
	if !(hi > lo) {
		out, _ := L.RescaleUnit()
		return out.Clamp(0, 1)
	}

	out := L.Map(func(v float64) float64 { return emath.Clamp01((v - lo) / (hi - lo)) })
	f02.dump(out, "fattal02-exponentiated")
	return out
}
