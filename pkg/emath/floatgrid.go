package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A FloatGrid is a row-major grid of floats, with some operations. All
// the operations that return a FloatGrid allocate a new one; the
// receiver is never modified except by Set.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFrom copies `vals` (row-major, len == w*h) into a new grid.
func NewFloatGridFrom(w, h int, vals []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 || len(vals) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d needs %d values, got %d", w, h, w*h, len(vals))
	}
	g := NewFloatGrid(w, h)
	copy(g.values, vals)
	return g, nil
}

func (fg FloatGrid) NewFromThis() FloatGrid    { return NewFloatGrid(fg.Dx(), fg.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg FloatGrid) Get(x, y int) float64      { return fg.values[fg.stride*y+x] }
func (fg FloatGrid) Dx() int                   { return fg.stride }
func (fg FloatGrid) Len() int                  { return len(fg.values) }
func (fg FloatGrid) Dims() image.Point         { return image.Point{fg.Dx(), fg.Dy()} }

func (fg FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

// At and SetAt index the row-major backing array directly.
func (fg FloatGrid) At(i int) float64           { return fg.values[i] }
func (fg *FloatGrid) SetAt(i int, v float64)    { fg.values[i] = v }
func (fg FloatGrid) SameShape(o FloatGrid) bool { return fg.stride == o.stride && len(fg.values) == len(o.values) }

// Values returns a copy of the backing array.
func (fg FloatGrid) Values() []float64 {
	out := make([]float64, len(fg.values))
	copy(out, fg.values)
	return out
}

func (fg FloatGrid) Copy() FloatGrid {
	g2 := FloatGrid{stride: fg.stride, values: make([]float64, len(fg.values))}
	copy(g2.values, fg.values)
	return g2
}

// Map returns a new grid holding f(v) for every value v.
func (fg FloatGrid) Map(f func(float64) float64) FloatGrid {
	g2 := fg.NewFromThis()
	for i, v := range fg.values {
		g2.values[i] = f(v)
	}
	return g2
}

func (fg FloatGrid) Clamp(lo, hi float64) FloatGrid {
	return fg.Map(func(v float64) float64 { return Clamp(v, lo, hi) })
}

// MinMax returns the smallest and largest values; (0,0) for an empty grid.
func (fg FloatGrid) MinMax() (float64, float64) {
	if len(fg.values) == 0 {
		return 0, 0
	}
	return floats.Min(fg.values), floats.Max(fg.values)
}

func (fg FloatGrid) Mean() float64 {
	if len(fg.values) == 0 {
		return 0
	}
	return stat.Mean(fg.values, nil)
}

// RescaleUnit maps the grid's [min,max] onto [0,1]. If the grid has no
// dynamic range (max == min, e.g. a blank frame) there is nothing to
// stretch, so it returns an unscaled copy and false.
func (fg FloatGrid) RescaleUnit() (FloatGrid, bool) {
	min, max := fg.MinMax()
	span := max - min
	out := fg.Copy()
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return out, false
	}

	floats.AddConst(-min, out.values)
	for i := range out.values {
		// divide rather than multiply by 1/span, so the max lands on exactly 1.0
		out.values[i] = out.values[i] / span
	}
	return out, true
}

// BoxBlur replaces each value by the mean of the (2r+1)x(2r+1) window
// around it. Edge pixels are replicated, so the window always holds the
// same number of samples. Done as two separable passes.
func (g1 FloatGrid) BoxBlur(radius int) FloatGrid {
	if radius <= 0 {
		return g1.Copy()
	}
	width := g1.Dx()
	height := g1.Dy()
	n := float64(2*radius + 1)

	T := g1.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				sum += g1.Get(clampIndex(x+k, width), y)
			}
			T.Set(x, y, sum/n)
		}
	}

	g2 := g1.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				sum += T.Get(x, clampIndex(y+k, height))
			}
			g2.Set(x, y, sum/n)
		}
	}

	return g2
}

// GaussianBlur runs a 1-2-1 kernel over the grid, in X then Y. Edge
// values use 3-1 instead.
func (g1 FloatGrid) GaussianBlur() FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	if width < 2 || height < 2 {
		return g1.Copy()
	}

	T := g1.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 1; x < width-1; x++ {
			T.Set(x, y, (2*g1.Get(x, y)+g1.Get(x-1, y)+g1.Get(x+1, y))/4)
		}
		T.Set(0, y, (3*g1.Get(0, y)+g1.Get(1, y))/4)
		T.Set(width-1, y, (3*g1.Get(width-1, y)+g1.Get(width-2, y))/4)
	}

	g2 := g1.NewFromThis()
	for x := 0; x < width; x++ {
		for y := 1; y < height-1; y++ {
			g2.Set(x, y, (2*T.Get(x, y)+T.Get(x, y-1)+T.Get(x, y+1))/4)
		}
		g2.Set(x, 0, (3*T.Get(x, 0)+T.Get(x, 1))/4)
		g2.Set(x, height-1, (3*T.Get(x, height-1)+T.Get(x, height-2))/4)
	}

	return g2
}

// DownSample returns a grid half the size in each direction, each value
// the mean of a 2x2 block. An odd last row or column is dropped.
func (g1 FloatGrid) DownSample() FloatGrid {
	g2 := NewFloatGrid(g1.Dx()/2, g1.Dy()/2)
	for y := 0; y < g2.Dy(); y++ {
		for x := 0; x < g2.Dx(); x++ {
			p := g1.Get(2*x, 2*y) + g1.Get(2*x+1, 2*y) + g1.Get(2*x, 2*y+1) + g1.Get(2*x+1, 2*y+1)
			g2.Set(x, y, p/4)
		}
	}
	return g2
}

// UpSample blows the grid up to w x h, copying each value into a 2x2
// block; rows and columns past the end repeat the last one.
func (g1 FloatGrid) UpSample(w, h int) FloatGrid {
	g2 := NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g2.Set(x, y, g1.Get(clampIndex(x/2, g1.Dx()), clampIndex(y/2, g1.Dy())))
		}
	}
	return g2
}

// Gradients returns the central-difference gradient magnitude at each
// point, scaled for pyramid level `depth`, and its mean.
func (H FloatGrid) Gradients(depth int) (FloatGrid, float64) {
	G := H.NewFromThis()
	width := H.Dx()
	height := H.Dy()
	divider := math.Pow(2, float64(depth)+1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			w, e := clampIndex(x-1, width), clampIndex(x+1, width)
			n, s := clampIndex(y-1, height), clampIndex(y+1, height)

			gx := (H.Get(w, y) - H.Get(e, y)) / divider
			gy := (H.Get(x, s) - H.Get(x, n)) / divider
			G.Set(x, y, math.Sqrt(gx*gx+gy*gy))
		}
	}

	return G, G.Mean()
}

// Percentiles returns the values at fractions lo and hi of the sorted
// non-zero values. Both are 0 if every value is zero.
func (fg FloatGrid) Percentiles(lo, hi float64) (float64, float64) {
	vals := []float64{}
	for _, v := range fg.values {
		if v != 0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	sort.Float64s(vals)
	return stat.Quantile(Clamp01(lo), stat.Empirical, vals, nil), stat.Quantile(Clamp01(hi), stat.Empirical, vals, nil)
}

func (fg FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}, mean %f]", fg.Dx(), fg.Dy(), min, max, fg.Mean())
}

func (fg FloatGrid) String() string { return fg.Stats() }

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg FloatGrid) ToImg(title, filename string) error {
	if fg.Len() == 0 {
		return fmt.Errorf("ToImg '%s': empty grid", filename)
	}
	min, max := fg.MinMax()
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for x := 0; x < fg.Dx(); x++ {
		for y := 0; y < fg.Dy(); y++ {
			gray := GammaExpand_F64(Clamp01((fg.Get(x, y) - min) / span))
			v := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{v, v, v, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	if title != "" {
		dc.SetRGB(1, 0, 0)
		dc.DrawString(title, 4, 14)
	}
	return dc.SavePNG(filename)
}
