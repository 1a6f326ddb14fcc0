package sink

import (
	"fmt"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/tiff"

	"github.com/abworrall/tof-hdr/pkg/fuse"
)

// DefaultTIFFCeiling is what 1.0 maps to in a 16-bit TIFF: the long
// exposure's nominal sensor range.
const DefaultTIFFCeiling = 5100

// WriteHDR outputs the fused frame as a Radiance RGBE file, which HDR
// tools can load without losing any of the range.
func WriteHDR(ff fuse.FusedFrame, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("WriteHDR, open+w '%s': %w", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, ff); err != nil {
		return fmt.Errorf("WriteHDR, encoding RGBE file: %w", err)
	}
	return nil
}

// WriteTIFF16 quantizes the fused frame onto [0,ceiling] and writes a
// 16-bit grayscale TIFF.
func WriteTIFF16(ff fuse.FusedFrame, filename string, ceiling float64) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("WriteTIFF16, open+w '%s': %w", filename, err)
	}
	defer writer.Close()

	if err := tiff.Encode(writer, ff.ToGray16(ceiling), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("WriteTIFF16, encoding: %w", err)
	}
	return nil
}
