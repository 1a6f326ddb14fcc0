//go:build !nocv

package tonemap

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCVEqualizerMatchesTileEqualizer(t *testing.T) {
	e, err := NewEqualizer(OpenCVEqualizerName)
	require.NoError(t, err)

	src := grayOf(64, 64, func(x, y int) uint8 { return uint8((x*3 + y*2) % 256) })
	want, err := TileEqualizer{}.Equalize(src, 2, image.Point{8, 8})
	require.NoError(t, err)
	got, err := e.Equalize(src, 2, image.Point{8, 8})
	require.NoError(t, err)

	require.Equal(t, want.Bounds(), got.Bounds())
	for i := range want.Pix {
		assert.InDelta(t, int(want.Pix[i]), int(got.Pix[i]), 2, "pixel %d", i)
	}
}

func TestOpenCVIsTheDefault(t *testing.T) {
	e, err := NewEqualizer("")
	require.NoError(t, err)
	assert.Equal(t, OpenCVEqualizerName, e.Name())
	assert.Equal(t, OpenCVEqualizerName, DefaultToneMapper().Equalizer.Name())
}

func TestOpenCVEqualizerSmallImages(t *testing.T) {
	e, err := NewEqualizer(OpenCVEqualizerName)
	require.NoError(t, err)

	src := grayOf(3, 2, func(x, y int) uint8 { return uint8(x * 40) })
	out, err := e.Equalize(src, 2, image.Point{8, 8})
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())

	sub := grayOf(8, 8, func(x, y int) uint8 { return uint8(x * 30) }).SubImage(image.Rect(2, 2, 6, 6)).(*image.Gray)
	out, err = e.Equalize(sub, 2, image.Point{2, 2})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
}
