package fuse

import (
	"math"

	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// Params holds the literal thresholds and knobs the blending strategies
// use. All levels are in normalized units, i.e. fractions of the short
// exposure's scale. The defaults are one observed set of values, not
// law; they vary between captures and sensors.
type Params struct {
	Masks exposure.MaskBuilder

	SaturationHigh   float64 // long readings above this are treated as blown highlights
	UnderexposureLow float64 // short readings below this are treated as noise floor
	Gain             float64 // reprojects long onto the short scale; 0 means long.Scale/short.Scale

	// Pinned output levels for priority-select
	LongClipLevel      float64 // long >= this is fully saturated ...
	LongSaturatedLevel float64 // ... and maps to this mid-high level, not full scale
	ShortFloorLevel    float64 // 0 < short <= this, with no usable long ...
	ShortFloorPin      float64 // ... maps to this low level, not black

	// weighted-sigmoid
	SigmoidStrength float64
	WeightLow       float64
	WeightHigh      float64

	// max-with-compression
	BlurRadius       int
	CompressExponent float64
}

func DefaultParams() Params {
	return Params{
		Masks:              exposure.DefaultMaskBuilder(),
		SaturationHigh:     200.0 / 255.0,
		UnderexposureLow:   3.0 / 255.0,
		Gain:               20,
		LongClipLevel:      1.0,
		LongSaturatedLevel: 240.0 / 255.0,
		ShortFloorLevel:    1.0 / 255.0,
		ShortFloorPin:      20.0 / 255.0,
		SigmoidStrength:    6,
		WeightLow:          0.3,
		WeightHigh:         0.7,
		BlurRadius:         2,
		CompressExponent:   0.5,
	}
}

func (p Params) Validate() error {
	if err := p.Masks.Validate(); err != nil {
		return err
	}

	nonNeg := []struct {
		name string
		v    float64
	}{
		{"saturation_threshold_high", p.SaturationHigh},
		{"underexposure_threshold_low", p.UnderexposureLow},
		{"gain", p.Gain},
		{"long_clip_level", p.LongClipLevel},
		{"long_saturated_level", p.LongSaturatedLevel},
		{"short_floor_level", p.ShortFloorLevel},
		{"short_floor_pin", p.ShortFloorPin},
	}
	for _, f := range nonNeg {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return exposure.InvalidConfig(f.name, f.v, "must be a finite value >= 0")
		}
	}

	if p.UnderexposureLow >= p.SaturationHigh {
		return exposure.InvalidConfig("underexposure_threshold_low", p.UnderexposureLow, "must be below saturation_threshold_high")
	}
	if !(p.SigmoidStrength > 0) {
		return exposure.InvalidConfig("sigmoid_strength", p.SigmoidStrength, "must be > 0")
	}
	if p.WeightLow < 0 || p.WeightHigh > 1 || p.WeightLow > p.WeightHigh {
		return exposure.InvalidConfig("weight_bounds", [2]float64{p.WeightLow, p.WeightHigh}, "need 0 <= low <= high <= 1")
	}
	if p.BlurRadius < 0 {
		return exposure.InvalidConfig("blur_radius", p.BlurRadius, "must be >= 0")
	}
	if !(p.CompressExponent > 0) {
		return exposure.InvalidConfig("compress_exponent", p.CompressExponent, "must be > 0")
	}
	return nil
}

// gain works out how to reproject long onto the short exposure's scale.
func (p Params) gain(short, long exposure.NormalizedFrame) float64 {
	if p.Gain > 0 {
		return p.Gain
	}
	if short.Scale > 0 && long.Scale > 0 {
		return long.Scale / short.Scale
	}
	return 1
}
