package fuse

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/tof-hdr/pkg/emath"
)

// FusedFrame is the single-channel result of fusing a set of exposures.
// Normalized says whether the values have been stretched onto [0,1]; it
// is false only for the flat-frame fallback. Implements image.Image and
// hdr.Image, so it can be written out as a Radiance file.
type FusedFrame struct {
	emath.FloatGrid
	Normalized bool
	Strategy   string
}

// Implement image.Image
func (ff FusedFrame) ColorModel() color.Model { return hdrcolor.RGBModel }
func (ff FusedFrame) Bounds() image.Rectangle { return image.Rectangle{Max: ff.Dims()} }
func (ff FusedFrame) At(x, y int) color.Color { return ff.HDRAt(x, y) }

// Implement hdr.Image
func (ff FusedFrame) HDRAt(x, y int) hdrcolor.Color {
	v := ff.Get(x, y)
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (ff FusedFrame) Size() int { return ff.Len() }

func (ff FusedFrame) String() string {
	return fmt.Sprintf("FusedFrame(%s, normalized=%v) %s", ff.Strategy, ff.Normalized, ff.Stats())
}

// ToGray16 quantizes the [0,1] values onto [0,ceiling] (at most 0xFFFF),
// e.g. ceiling=5100 for the long sensor's nominal range.
func (ff FusedFrame) ToGray16(ceiling float64) *image.Gray16 {
	ceiling = emath.Clamp(ceiling, 0, 0xFFFF)
	img := image.NewGray16(ff.Bounds())
	for y := 0; y < ff.Dy(); y++ {
		for x := 0; x < ff.Dx(); x++ {
			v := math.Round(emath.Clamp01(ff.Get(x, y)) * ceiling)
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	return img
}
