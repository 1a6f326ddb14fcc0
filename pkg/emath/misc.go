package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]. Only used to make debug dumps look
// normal to human eyes; the tonemapper has its own gamma.
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Logistic is the standard sigmoid, 1/(1+e^-x); it never leaves (0,1).
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// clampIndex pins i into [0, n-1], i.e. replicates the border pixel.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
