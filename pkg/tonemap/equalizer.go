package tonemap

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// An Equalizer does contrast-limited adaptive histogram equalization of
// an 8-bit image over a grid of tiles.
type Equalizer interface {
	Name() string
	Equalize(src *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error)
}

const TileEqualizerName = "tile"

var equalizers = map[string]Equalizer{
	TileEqualizerName: TileEqualizer{},
}

func registerEqualizer(e Equalizer) { equalizers[e.Name()] = e }

func ListEqualizers() string {
	names := []string{}
	for name := range equalizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func defaultEqualizer() Equalizer {
	if e, exists := equalizers[DefaultEqualizerName]; exists {
		return e
	}
	return TileEqualizer{}
}

// NewEqualizer looks up an equalizer by name; "" gets the default, which
// is OpenCV's CLAHE unless built with `-tags nocv`.
func NewEqualizer(name string) (Equalizer, error) {
	if name == "" {
		return defaultEqualizer(), nil
	}
	if e, exists := equalizers[name]; exists {
		return e, nil
	}
	return nil, exposure.InvalidConfig("equalizer", name, fmt.Sprintf("wanted one of [%s]", ListEqualizers()))
}

// TileEqualizer is a pure Go CLAHE, for builds without OpenCV. It
// follows OpenCV's 8-bit behaviour: the clip limit is relative to a flat
// histogram (limit*area/256, at least 1), the clipped excess is spread
// back over all bins, and each pixel blends the LUTs of its four nearest
// tile centers bilinearly.
type TileEqualizer struct{}

func (TileEqualizer) Name() string { return TileEqualizerName }

func (TileEqualizer) Equalize(src *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out, nil
	}

	// Never more tiles than pixels
	tx, ty := tiles.X, tiles.Y
	if tx > w {
		tx = w
	}
	if ty > h {
		ty = h
	}
	if tx <= 0 || ty <= 0 {
		return nil, exposure.InvalidConfig("tile_grid", tiles, "both dimensions must be > 0")
	}

	pix := func(x, y int) uint8 { return src.GrayAt(b.Min.X+x, b.Min.Y+y).Y }

	luts := make([][256]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		for i := 0; i < tx; i++ {
			x0, x1 := i*w/tx, (i+1)*w/tx
			y0, y1 := j*h/ty, (j+1)*h/ty

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[pix(x, y)]++
				}
			}
			luts[j*tx+i] = tileLUT(hist, (x1-x0)*(y1-y0), clipLimit)
		}
	}

	tileW := float64(w) / float64(tx)
	tileH := float64(h) / float64(ty)

	for y := 0; y < h; y++ {
		ty1, ty2, py := neighbours(y, tileH, ty)
		for x := 0; x < w; x++ {
			tx1, tx2, px := neighbours(x, tileW, tx)

			v := pix(x, y)
			top := (1-px)*float64(luts[ty1*tx+tx1][v]) + px*float64(luts[ty1*tx+tx2][v])
			bot := (1-px)*float64(luts[ty2*tx+tx1][v]) + px*float64(luts[ty2*tx+tx2][v])
			res := (1-py)*top + py*bot

			out.Pix[y*out.Stride+x] = uint8(math.Min(255, math.Max(0, math.Round(res))))
		}
	}

	return out, nil
}

// neighbours finds the two tiles whose centers bracket pos, and how far
// pos sits from the first. Off either end both indices clamp to the
// edge tile, so the fraction no longer matters.
func neighbours(pos int, tileSize float64, n int) (int, int, float64) {
	f := float64(pos)/tileSize - 0.5
	t1 := int(math.Floor(f))
	frac := f - float64(t1)
	t2 := t1 + 1
	if t1 < 0 {
		t1 = 0
	}
	if t2 > n-1 {
		t2 = n - 1
	}
	return t1, t2, frac
}

func tileLUT(hist [256]int, area int, clipLimit float64) [256]uint8 {
	if clipLimit > 0 {
		limit := int(clipLimit * float64(area) / 256)
		if limit < 1 {
			limit = 1
		}

		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}

		batch := excess / 256
		residual := excess - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := 256 / residual
			if step < 1 {
				step = 1
			}
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	var lut [256]uint8
	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}
