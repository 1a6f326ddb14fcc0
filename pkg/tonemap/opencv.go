//go:build !nocv

package tonemap

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/abworrall/tof-hdr/pkg/exposure"
)

const (
	OpenCVEqualizerName  = "opencv"
	DefaultEqualizerName = OpenCVEqualizerName
)

func init() {
	registerEqualizer(OpenCVEqualizer{})
}

// OpenCVEqualizer hands the work to OpenCV's CLAHE. It needs the OpenCV
// shared libraries; build with `-tags nocv` to leave it out.
type OpenCVEqualizer struct{}

func (OpenCVEqualizer) Name() string { return OpenCVEqualizerName }

func (OpenCVEqualizer) Equalize(src *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, w, h)), nil
	}

	// Never more tiles than pixels
	tiles.X, tiles.Y = min(tiles.X, w), min(tiles.Y, h)
	if tiles.X <= 0 || tiles.Y <= 0 {
		return nil, exposure.InvalidConfig("tile_grid", tiles, "both dimensions must be > 0")
	}

	// Pack the rows, in case src is a sub-image with a wider stride
	buf := make([]byte, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := src.PixOffset(b.Min.X, y)
		buf = append(buf, src.Pix[start:start+w]...)
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return nil, fmt.Errorf("NewMatFromBytes: %w", err)
	}
	defer mat.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit, tiles)
	defer clahe.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	clahe.Apply(mat, &dst)

	if dst.Empty() || dst.Rows() != h || dst.Cols() != w {
		return nil, fmt.Errorf("CLAHE returned a %dx%d Mat, wanted %dx%d", dst.Cols(), dst.Rows(), w, h)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	copy(out.Pix, dst.ToBytes())
	return out, nil
}
