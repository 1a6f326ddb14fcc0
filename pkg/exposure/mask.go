package exposure

import (
	"fmt"
	"image"
	"math"

	"github.com/abworrall/tof-hdr/pkg/emath"
)

// A Mask tags every pixel of a frame with one boolean condition. Masks
// are never modified after they are built; And/Or/Not return new ones.
type Mask struct {
	stride int
	bits   []bool
}

func newMask(w, h int) Mask {
	return Mask{stride: w, bits: make([]bool, w*h)}
}

func maskOf(g emath.FloatGrid, pred func(float64) bool) Mask {
	m := newMask(g.Dx(), g.Dy())
	for i := range m.bits {
		m.bits[i] = pred(g.At(i))
	}
	return m
}

func (m Mask) Get(x, y int) bool { return m.bits[m.stride*y+x] }
func (m Mask) At(i int) bool     { return m.bits[i] }
func (m Mask) Len() int          { return len(m.bits) }

func (m Mask) Size() image.Point {
	if m.stride == 0 {
		return image.Point{}
	}
	return image.Point{m.stride, len(m.bits) / m.stride}
}

// Count returns how many pixels are set.
func (m Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

func (m Mask) combine(o Mask, op func(a, b bool) bool) Mask {
	if m.stride != o.stride || len(m.bits) != len(o.bits) {
		panic(fmt.Sprintf("mask shape mismatch: %v vs %v", m.Size(), o.Size()))
	}
	out := Mask{stride: m.stride, bits: make([]bool, len(m.bits))}
	for i := range m.bits {
		out.bits[i] = op(m.bits[i], o.bits[i])
	}
	return out
}

func (m Mask) And(o Mask) Mask { return m.combine(o, func(a, b bool) bool { return a && b }) }
func (m Mask) Or(o Mask) Mask  { return m.combine(o, func(a, b bool) bool { return a || b }) }

func (m Mask) Not() Mask {
	out := Mask{stride: m.stride, bits: make([]bool, len(m.bits))}
	for i, b := range m.bits {
		out.bits[i] = !b
	}
	return out
}

// A MaskBuilder classifies pixels of a normalized frame. A pixel is
// valid iff ValidLow < v <= ValidHigh; saturated above that window,
// underexposed at or below it.
type MaskBuilder struct {
	ValidLow  float64
	ValidHigh float64
}

// DefaultMaskBuilder treats (0,1] as valid, i.e. raw (0,255] on an 8-bit
// sensor.
func DefaultMaskBuilder() MaskBuilder {
	return MaskBuilder{ValidLow: 0, ValidHigh: 1}
}

func (mb MaskBuilder) Validate() error {
	if math.IsNaN(mb.ValidLow) || math.IsNaN(mb.ValidHigh) {
		return InvalidConfig("valid_low/valid_high", [2]float64{mb.ValidLow, mb.ValidHigh}, "NaN threshold")
	}
	if mb.ValidLow >= mb.ValidHigh {
		return InvalidConfig("valid_low/valid_high", [2]float64{mb.ValidLow, mb.ValidHigh}, "need valid_low < valid_high")
	}
	return nil
}

func (mb MaskBuilder) Valid(f NormalizedFrame) Mask {
	return mb.Within(f, mb.ValidLow, mb.ValidHigh)
}

func (mb MaskBuilder) Saturated(f NormalizedFrame) Mask {
	return mb.Above(f, mb.ValidHigh)
}

func (mb MaskBuilder) Underexposed(f NormalizedFrame) Mask {
	lo := mb.ValidLow
	return maskOf(f.FloatGrid, func(v float64) bool { return v <= lo })
}

// Above tags v > t.
func (mb MaskBuilder) Above(f NormalizedFrame, t float64) Mask {
	return maskOf(f.FloatGrid, func(v float64) bool { return v > t })
}

// Below tags v < t.
func (mb MaskBuilder) Below(f NormalizedFrame, t float64) Mask {
	return maskOf(f.FloatGrid, func(v float64) bool { return v < t })
}

// AtLeast tags v >= t.
func (mb MaskBuilder) AtLeast(f NormalizedFrame, t float64) Mask {
	return maskOf(f.FloatGrid, func(v float64) bool { return v >= t })
}

// Within tags lo < v <= hi.
func (mb MaskBuilder) Within(f NormalizedFrame, lo, hi float64) Mask {
	return maskOf(f.FloatGrid, func(v float64) bool { return v > lo && v <= hi })
}
