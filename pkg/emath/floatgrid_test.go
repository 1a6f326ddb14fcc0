package emath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridOf(t *testing.T, w, h int, vals ...float64) FloatGrid {
	t.Helper()
	g, err := NewFloatGridFrom(w, h, vals)
	require.NoError(t, err)
	return g
}

func TestNewFloatGridFrom(t *testing.T) {
	g := gridOf(t, 3, 2, 1, 2, 3, 4, 5, 6)
	assert.Equal(t, 3, g.Dx())
	assert.Equal(t, 2, g.Dy())
	assert.Equal(t, 6.0, g.Get(2, 1))
	assert.Equal(t, 4.0, g.Get(0, 1))

	_, err := NewFloatGridFrom(2, 2, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = NewFloatGridFrom(0, 2, nil)
	assert.Error(t, err)
}

func TestFloatGridEmpty(t *testing.T) {
	g := NewFloatGrid(0, 0)
	assert.Equal(t, 0, g.Dy())
	min, max := g.MinMax()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, max)
	assert.Equal(t, 0.0, g.Mean())
}

func TestFloatGridCopyIsIndependent(t *testing.T) {
	g := gridOf(t, 2, 1, 1, 2)
	c := g.Copy()
	c.Set(0, 0, 99)
	assert.Equal(t, 1.0, g.Get(0, 0))

	vals := g.Values()
	vals[1] = 42
	assert.Equal(t, 2.0, g.Get(1, 0))
}

func TestRescaleUnit(t *testing.T) {
	g := gridOf(t, 2, 2, 2, 4, 6, 10)
	out, ok := g.RescaleUnit()
	require.True(t, ok)

	min, max := out.MinMax()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 1.0, max)
	assert.InDelta(t, 0.25, out.Get(1, 0), 1e-12)
	assert.Equal(t, 2.0, g.Get(0, 0), "receiver must not change")
}

func TestRescaleUnitDegenerate(t *testing.T) {
	g := gridOf(t, 2, 2, 7, 7, 7, 7)
	out, ok := g.RescaleUnit()
	assert.False(t, ok)
	assert.Equal(t, g.Values(), out.Values())
}

func TestBoxBlur(t *testing.T) {
	t.Run("uniform grid is unchanged", func(t *testing.T) {
		g := gridOf(t, 3, 3, 5, 5, 5, 5, 5, 5, 5, 5, 5)
		b := g.BoxBlur(1)
		for i := 0; i < b.Len(); i++ {
			assert.InDelta(t, 5.0, b.At(i), 1e-12)
		}
	})

	t.Run("impulse spreads evenly", func(t *testing.T) {
		g := NewFloatGrid(5, 5)
		g.Set(2, 2, 9)
		b := g.BoxBlur(1)
		assert.InDelta(t, 1.0, b.Get(2, 2), 1e-12)
		assert.InDelta(t, 1.0, b.Get(1, 1), 1e-12)
		assert.InDelta(t, 0.0, b.Get(0, 0), 1e-12)
	})

	t.Run("zero radius copies", func(t *testing.T) {
		g := gridOf(t, 2, 1, 1, 3)
		assert.Equal(t, g.Values(), g.BoxBlur(0).Values())
	})
}

func TestClampAndLogistic(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-3))
	assert.Equal(t, 1.0, Clamp01(3))
	assert.Equal(t, 0.5, Clamp01(0.5))
	assert.InDelta(t, 0.5, Logistic(0), 1e-12)
	assert.Greater(t, Logistic(10), 0.99)
	assert.Less(t, Logistic(-10), 0.01)
}

func TestToImg(t *testing.T) {
	g := gridOf(t, 2, 2, 0, 1, 2, 3)
	fn := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, g.ToImg("grid", fn))
	assert.FileExists(t, fn)

	assert.Error(t, NewFloatGrid(0, 0).ToImg("", fn))
}

func TestGaussianBlur(t *testing.T) {
	t.Run("constant grid is unchanged", func(t *testing.T) {
		g := gridOf(t, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4)
		b := g.GaussianBlur()
		for i := 0; i < b.Len(); i++ {
			assert.InDelta(t, 4.0, b.At(i), 1e-12)
		}
	})

	t.Run("impulse weights", func(t *testing.T) {
		g := NewFloatGrid(5, 5)
		g.Set(2, 2, 16)
		b := g.GaussianBlur()
		assert.InDelta(t, 4.0, b.Get(2, 2), 1e-12)
		assert.InDelta(t, 2.0, b.Get(1, 2), 1e-12)
		assert.InDelta(t, 1.0, b.Get(1, 1), 1e-12)
		assert.InDelta(t, 0.0, b.Get(0, 0), 1e-12)
	})
}

func TestDownAndUpSample(t *testing.T) {
	g := gridOf(t, 5, 2,
		1, 3, 5, 7, 100,
		1, 3, 5, 7, 100)
	d := g.DownSample()
	assert.Equal(t, 2, d.Dx())
	assert.Equal(t, 1, d.Dy())
	assert.Equal(t, []float64{2, 6}, d.Values())

	u := d.UpSample(5, 3)
	assert.Equal(t, []float64{
		2, 2, 6, 6, 6,
		2, 2, 6, 6, 6,
		2, 2, 6, 6, 6,
	}, u.Values())
}

func TestGradients(t *testing.T) {
	g := gridOf(t, 4, 1, 0, 1, 2, 3)
	G, avg := g.Gradients(0)
	// central differences over two steps, halved at depth 0
	assert.InDelta(t, 0.5, G.Get(0, 0), 1e-12)
	assert.InDelta(t, 1.0, G.Get(1, 0), 1e-12)
	assert.InDelta(t, 1.0, G.Get(2, 0), 1e-12)
	assert.InDelta(t, 0.5, G.Get(3, 0), 1e-12)
	assert.InDelta(t, 0.75, avg, 1e-12)

	G1, _ := g.Gradients(1)
	assert.InDelta(t, 0.5, G1.Get(1, 0), 1e-12)
}

func TestPercentiles(t *testing.T) {
	g := gridOf(t, 5, 1, 0, 4, 1, 3, 2)
	lo, hi := g.Percentiles(0, 1)
	assert.Equal(t, 1.0, lo, "zeros are ignored")
	assert.Equal(t, 4.0, hi)

	lo, hi = NewFloatGrid(2, 2).Percentiles(0.1, 0.9)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}
