package exposure

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/abworrall/tof-hdr/pkg/emath"
)

// An IntegrationLabel says how long the sensor integrated for this
// frame. Only the ordering is meaningful: it is never used in arithmetic.
type IntegrationLabel int

const (
	Short IntegrationLabel = iota
	Medium
	Long
)

var labelNames = []string{"short", "medium", "long"}

func (l IntegrationLabel) String() string {
	if l < Short || l > Long {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

func ParseIntegrationLabel(s string) (IntegrationLabel, error) {
	for i, name := range labelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return IntegrationLabel(i), nil
		}
	}
	return Short, fmt.Errorf("no integration label named '%s', wanted one of %v", s, labelNames)
}

// UnmarshalYAML lets config files say `label: long`.
func (l *IntegrationLabel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseIntegrationLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l IntegrationLabel) MarshalYAML() (interface{}, error) { return l.String(), nil }

// A Frame is one captured exposure: a grid of non-negative raw sensor
// samples, plus the largest value the sensor can emit at this
// integration time. The pipeline only ever reads a Frame.
type Frame struct {
	Samples emath.FloatGrid
	Scale   float64          // exposure scale, e.g. 255 or 5100
	Label   IntegrationLabel // short/medium/long
	Source  string           // where it came from; for logging only
}

func NewFrame(samples emath.FloatGrid, scale float64, label IntegrationLabel) Frame {
	return Frame{Samples: samples, Scale: scale, Label: label}
}

// FrameFromImage copies the pixel values of `img` into a Frame. Gray and
// Gray16 images keep their raw counts; anything else is reduced to 8-bit
// luminance first.
func FrameFromImage(img image.Image, scale float64, label IntegrationLabel) Frame {
	b := img.Bounds()
	g := emath.NewFloatGrid(b.Dx(), b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v float64
			switch src := img.(type) {
			case *image.Gray:
				v = float64(src.GrayAt(x, y).Y)
			case *image.Gray16:
				v = float64(src.Gray16At(x, y).Y)
			default:
				v = float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			}
			g.Set(x-b.Min.X, y-b.Min.Y, v)
		}
	}

	return NewFrame(g, scale, label)
}

func (f Frame) Size() image.Point { return f.Samples.Dims() }

func (f Frame) String() string {
	name := f.Source
	if name == "" {
		name = "frame"
	}
	return fmt.Sprintf("%s: %s, %dx%d, scale %.0f", name, f.Label, f.Samples.Dx(), f.Samples.Dy(), f.Scale)
}

// Validate checks the per-frame invariants: positive scale, a non-empty
// grid, and finite non-negative samples.
func (f Frame) Validate() error {
	if !(f.Scale > 0) || math.IsInf(f.Scale, 0) {
		return &DegenerateInputError{What: "exposure scale must be > 0", Value: f.Scale}
	}
	if f.Samples.Len() == 0 {
		return &DegenerateInputError{What: "frame has no pixels", Value: 0}
	}
	for i := 0; i < f.Samples.Len(); i++ {
		if v := f.Samples.At(i); v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return &DegenerateInputError{What: fmt.Sprintf("sample %d out of range", i), Value: v}
		}
	}
	return nil
}

// CheckShapes returns a *ShapeMismatchError if the frames don't all share
// the first frame's shape.
func CheckShapes(frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}
	want := frames[0].Size()
	for i, f := range frames[1:] {
		if got := f.Size(); got != want {
			return &ShapeMismatchError{Want: want, Got: got, Index: i + 1}
		}
	}
	return nil
}

// SortByLabel returns a copy of frames ordered short to long. Frames with
// the same label keep their relative order.
func SortByLabel(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	copy(out, frames)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
