package fuse

import (
	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// PrioritySelect picks, per pixel, whichever exposure is inside its
// valid range, preferring the short exposure's finer intensity steps.
// The rules are applied in order, later ones overriding earlier ones:
//
//  1. nothing applies: 0 (unresolved)
//  2. short valid (alone or with long): short
//  3. only long valid: long * gain
//  4. long above SaturationHigh, short valid: short (highlight protection)
//  5. short below UnderexposureLow, long valid: long * gain
//  6. long at or above LongClipLevel: LongSaturatedLevel
//  7. 0 < short <= ShortFloorLevel with no valid long: ShortFloorPin
//
// The two pins keep clipped readings off full white and full black.
type PrioritySelect struct {
	Params
}

func (ps PrioritySelect) Name() string { return PrioritySelectName }

func (ps PrioritySelect) Blend(short, long exposure.NormalizedFrame) (emath.FloatGrid, error) {
	p := ps.Params
	mb := p.Masks
	gain := p.gain(short, long)

	validS := mb.Valid(short)
	validL := mb.Valid(long)

	longHot := mb.Above(long, p.SaturationHigh).And(validS)
	shortDark := mb.Below(short, p.UnderexposureLow).And(validL)
	longClipped := mb.AtLeast(long, p.LongClipLevel)
	shortFloor := mb.Within(short, 0, p.ShortFloorLevel).And(validL.Not())

	out := short.NewFromThis()
	for i := 0; i < out.Len(); i++ {
		s, l := short.At(i), long.At(i)

		v := 0.0
		switch {
		case validS.At(i):
			v = s
		case validL.At(i):
			v = l * gain
		}

		if longHot.At(i) {
			v = s
		}
		if shortDark.At(i) {
			v = l * gain
		}
		if longClipped.At(i) {
			v = p.LongSaturatedLevel
		}
		if shortFloor.At(i) {
			v = p.ShortFloorPin
		}

		out.SetAt(i, v)
	}

	return out, nil
}
