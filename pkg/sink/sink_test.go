package sink

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/fuse"
	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

func displayOf(w, h int) tonemap.DisplayFrame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return tonemap.DisplayFrame{Gray: img}
}

func fusedOf(t *testing.T) fuse.FusedFrame {
	t.Helper()
	g, err := emath.NewFloatGridFrom(3, 2, []float64{0, 0.25, 0.5, 0.75, 1, 0.5})
	require.NoError(t, err)
	return fuse.FusedFrame{FloatGrid: g, Normalized: true, Strategy: fuse.PrioritySelectName}
}

func TestPNGDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := NewPNGDir(dir, 3)

	for i := 0; i < 2; i++ {
		require.NoError(t, p.Show(context.Background(), displayOf(5, 4)))
	}
	assert.Equal(t, 2, p.Count())

	img, err := imaging.Open(filepath.Join(dir, "frame-00001.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(15, 12), img.Bounds().Size())
}

func TestPNGDirRejectsEmptyFrame(t *testing.T) {
	p := NewPNGDir(t.TempDir(), 1)
	assert.Error(t, p.Show(context.Background(), tonemap.DisplayFrame{}))
}

func TestSavePNGNoUpscale(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "x.png")
	require.NoError(t, SavePNG(displayOf(5, 4), filename, 1))

	img, err := imaging.Open(filename)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 4), img.Bounds().Size())
}

func TestFuncAndDiscard(t *testing.T) {
	shown := 0
	s := Func(func(ctx context.Context, df tonemap.DisplayFrame) error {
		shown++
		return nil
	})
	require.NoError(t, s.Show(context.Background(), displayOf(1, 1)))
	require.NoError(t, Discard.Show(context.Background(), displayOf(1, 1)))
	assert.Equal(t, 1, shown)
}

func TestWriteHDR(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "fused.hdr")
	require.NoError(t, WriteHDR(fusedOf(t), filename))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	img, err := rgbe.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 2), img.Bounds().Size())
}

func TestWriteTIFF16(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "fused.tif")
	require.NoError(t, WriteTIFF16(fusedOf(t), filename, DefaultTIFFCeiling))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)

	g16, ok := img.(*image.Gray16)
	require.True(t, ok, "got %T", img)
	assert.Equal(t, uint16(0), g16.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(1275), g16.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(5100), g16.Gray16At(1, 1).Y)
}
