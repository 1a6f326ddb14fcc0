package exposure

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/tof-hdr/pkg/emath"
)

func frameOf(t *testing.T, w, h int, scale float64, label IntegrationLabel, vals ...float64) Frame {
	t.Helper()
	g, err := emath.NewFloatGridFrom(w, h, vals)
	require.NoError(t, err)
	return NewFrame(g, scale, label)
}

func TestNormalizeDividesByScale(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vals := make([]float64, 64)
	for i := range vals {
		vals[i] = float64(rng.Intn(5101))
	}
	f := frameOf(t, 8, 8, 5100, Long, vals...)

	n, err := Normalize(f)
	require.NoError(t, err)
	assert.Equal(t, Long, n.Label)
	assert.Equal(t, 5100.0, n.Scale)

	for i, v := range vals {
		got := n.At(i)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.InDelta(t, v/5100, got, 1e-12)
	}
	assert.Equal(t, vals[3], f.Samples.At(3), "input must not be modified")
}

func TestNormalizeDoesNotClamp(t *testing.T) {
	f := frameOf(t, 2, 1, 255, Short, 300, 510)
	n, err := Normalize(f)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, n.At(1), 1e-12)
}

func TestNormalizeRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1} {
		f := frameOf(t, 1, 1, scale, Short, 1)
		_, err := Normalize(f)
		var dErr *DegenerateInputError
		require.True(t, errors.As(err, &dErr), "scale %v", scale)
		assert.Equal(t, scale, dErr.Value)
	}
}

func TestFrameValidate(t *testing.T) {
	assert.NoError(t, frameOf(t, 1, 2, 255, Short, 0, 255).Validate())

	var dErr *DegenerateInputError
	assert.True(t, errors.As(frameOf(t, 1, 1, 0, Short, 1).Validate(), &dErr))
	assert.True(t, errors.As(frameOf(t, 1, 1, 255, Short, -1).Validate(), &dErr))
	assert.True(t, errors.As(NewFrame(emath.NewFloatGrid(0, 0), 255, Short).Validate(), &dErr))
}

func TestCheckShapes(t *testing.T) {
	a := frameOf(t, 2, 2, 255, Short, 1, 2, 3, 4)
	b := frameOf(t, 2, 2, 255, Long, 1, 2, 3, 4)
	c := frameOf(t, 4, 1, 255, Long, 1, 2, 3, 4)

	assert.NoError(t, CheckShapes([]Frame{a, b}))
	assert.NoError(t, CheckShapes(nil))

	err := CheckShapes([]Frame{a, b, c})
	var sErr *ShapeMismatchError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, 2, sErr.Index)
	assert.Equal(t, image.Point{4, 1}, sErr.Got)
	assert.Contains(t, err.Error(), "frame 2")
}

func TestSortByLabel(t *testing.T) {
	a := frameOf(t, 1, 1, 255, Long, 1)
	b := frameOf(t, 1, 1, 255, Short, 2)
	c := frameOf(t, 1, 1, 255, Medium, 3)
	d := frameOf(t, 1, 1, 255, Short, 4)

	sorted := SortByLabel([]Frame{a, b, c, d})
	got := []float64{}
	for _, f := range sorted {
		got = append(got, f.Samples.At(0))
	}
	assert.Equal(t, []float64{2, 4, 3, 1}, got)
}

func TestIntegrationLabelYaml(t *testing.T) {
	var doc struct {
		Label IntegrationLabel
	}
	require.NoError(t, yaml.Unmarshal([]byte("label: Medium\n"), &doc))
	assert.Equal(t, Medium, doc.Label)

	assert.Error(t, yaml.Unmarshal([]byte("label: forever\n"), &doc))

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "label: medium\n", string(out))
}

func TestFrameFromImage(t *testing.T) {
	g16 := image.NewGray16(image.Rect(0, 0, 2, 1))
	g16.SetGray16(1, 0, color.Gray16{Y: 5100})
	f := FrameFromImage(g16, 5100, Long)
	assert.Equal(t, 5100.0, f.Samples.Get(1, 0))

	// offset bounds get rebased to 0,0
	g8 := image.NewGray(image.Rect(10, 10, 12, 11))
	g8.SetGray(11, 10, color.Gray{Y: 200})
	f = FrameFromImage(g8, 255, Short)
	assert.Equal(t, image.Point{2, 1}, f.Size())
	assert.Equal(t, 200.0, f.Samples.Get(1, 0))

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.White)
	f = FrameFromImage(rgba, 255, Short)
	assert.Equal(t, 255.0, f.Samples.Get(0, 0))
}

func TestMaskBuilder(t *testing.T) {
	f := frameOf(t, 5, 1, 255, Short, 0, 1, 128, 255, 300)
	n, err := Normalize(f)
	require.NoError(t, err)

	mb := DefaultMaskBuilder()
	require.NoError(t, mb.Validate())

	valid := mb.Valid(n)
	sat := mb.Saturated(n)
	under := mb.Underexposed(n)

	assert.Equal(t, []bool{false, true, true, true, false}, bitsOf(valid))
	assert.Equal(t, []bool{false, false, false, false, true}, bitsOf(sat))
	assert.Equal(t, []bool{true, false, false, false, false}, bitsOf(under))

	// the three base classes partition the frame
	assert.Equal(t, 5, valid.Or(sat).Or(under).Count())
	assert.Equal(t, 0, valid.And(sat).Count())
	assert.Equal(t, valid.Not().Count(), sat.Or(under).Count())

	assert.Equal(t, []bool{false, false, false, true, true}, bitsOf(mb.Above(n, 200.0/255)))
	assert.Equal(t, []bool{true, true, false, false, false}, bitsOf(mb.Below(n, 3.0/255)))
	assert.Equal(t, []bool{false, false, false, true, true}, bitsOf(mb.AtLeast(n, 1)))
}

func TestMaskBuilderValidate(t *testing.T) {
	var cErr *InvalidConfigurationError
	assert.True(t, errors.As(MaskBuilder{ValidLow: 1, ValidHigh: 1}.Validate(), &cErr))
	assert.True(t, errors.As(MaskBuilder{ValidLow: 2, ValidHigh: 1}.Validate(), &cErr))
}

func TestMaskShapeMismatchPanics(t *testing.T) {
	a := maskOf(emath.NewFloatGrid(2, 2), func(float64) bool { return true })
	b := maskOf(emath.NewFloatGrid(4, 1), func(float64) bool { return true })
	assert.Panics(t, func() { a.And(b) })
}

func bitsOf(m Mask) []bool {
	out := make([]bool, m.Len())
	for i := range out {
		out[i] = m.At(i)
	}
	return out
}
