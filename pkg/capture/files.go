package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/tof-hdr/pkg/exposure"
)

/* Example frames.yaml, living next to the images it describes. Files
   without an entry are ordered by their EXIF ExposureTime (then by
   name), and labelled short to long in that order.

short.png:
  label: short
  scale: 255
long.tif:
  label: long
  scale: 5100

*/

// FrameInfo is one manifest entry.
type FrameInfo struct {
	Label *exposure.IntegrationLabel
	Scale float64
}

type Manifest map[string]FrameInfo

func LoadManifest(filename string) (Manifest, error) {
	m := Manifest{}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return m, fmt.Errorf("manifest read '%s': %w", filename, err)
	}
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return m, fmt.Errorf("manifest parse '%s': %w", filename, err)
	}
	return m, nil
}

// FileSource replays frames loaded from disk, as if they came off a
// camera: Configure picks the frame with that label, Capture hands back
// a copy of it.
type FileSource struct {
	frames   []exposure.Frame
	selected int
}

type loadedFile struct {
	filename     string
	img          image.Image
	exposureTime float64 // seconds, 0 if unknown
}

// LoadFiles reads images from the named files, recursing into dirs.
// Any .yaml file found along the way is read as a frame manifest.
func LoadFiles(args ...string) (*FileSource, error) {
	manifest := Manifest{}
	loaded := []loadedFile{}

	if err := walk(args, manifest, &loaded); err != nil {
		return nil, err
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no image files found in %v", args)
	}

	frames, err := assemble(loaded, manifest)
	if err != nil {
		return nil, err
	}
	return &FileSource{frames: exposure.SortByLabel(frames), selected: -1}, nil
}

func walk(args []string, manifest Manifest, loaded *[]loadedFile) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %w", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %w", arg, err)
			}
			for _, content := range contents {
				if err := walk([]string{filepath.Join(arg, content.Name())}, manifest, loaded); err != nil {
					return err
				}
			}

		default:
			if err := loadFile(arg, manifest, loaded); err != nil {
				return fmt.Errorf("loadfile %s: %w", arg, err)
			}
		}
	}
	return nil
}

func loadFile(filename string, manifest Manifest, loaded *[]loadedFile) error {
	switch strings.ToLower(filepath.Ext(filename)) {

	case ".yaml", ".yml":
		m, err := LoadManifest(filename)
		if err != nil {
			return err
		}
		for k, v := range m {
			manifest[k] = v
		}

	case ".tif", ".tiff":
		img, err := loadTIFF(filename)
		if err != nil {
			return err
		}
		*loaded = append(*loaded, loadedFile{filename, img, exposureTime(filename)})

	case ".png", ".jpg", ".jpeg", ".bmp", ".gif":
		img, err := imaging.Open(filename)
		if err != nil {
			return fmt.Errorf("decode '%s': %w", filename, err)
		}
		*loaded = append(*loaded, loadedFile{filename, img, exposureTime(filename)})
	}

	return nil
}

func loadTIFF(filename string) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %w", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("tiff loading '%s': %w", filename, err)
	}
	return img, nil
}

// exposureTime returns the EXIF ExposureTime in seconds, or 0 if the file
// doesn't carry one. PNGs never do.
func exposureTime(filename string) float64 {
	reader, err := os.Open(filename)
	if err != nil {
		return 0
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return 0
	}
	tag, err := ex.Get(exif.ExposureTime)
	if err != nil {
		return 0
	}
	num, denom, err := tag.Rat2(0)
	if err != nil || denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func assemble(loaded []loadedFile, manifest Manifest) ([]exposure.Frame, error) {
	// Unlabelled files are ranked by exposure time, shortest first
	unlabelled := []int{}
	for i, lf := range loaded {
		if info, exists := manifest[filepath.Base(lf.filename)]; !exists || info.Label == nil {
			unlabelled = append(unlabelled, i)
		}
	}
	sort.SliceStable(unlabelled, func(a, b int) bool {
		la, lb := loaded[unlabelled[a]], loaded[unlabelled[b]]
		if la.exposureTime != lb.exposureTime {
			return la.exposureTime < lb.exposureTime
		}
		return la.filename < lb.filename
	})
	if len(unlabelled) > 3 {
		return nil, fmt.Errorf("%d files have no label in the manifest, can only guess up to 3", len(unlabelled))
	}
	guessed := map[int]exposure.IntegrationLabel{}
	for rank, i := range unlabelled {
		switch {
		case rank == 0:
			guessed[i] = exposure.Short
		case rank == len(unlabelled)-1:
			guessed[i] = exposure.Long
		default:
			guessed[i] = exposure.Medium
		}
	}

	frames := []exposure.Frame{}
	for i, lf := range loaded {
		info := manifest[filepath.Base(lf.filename)]

		label, exists := guessed[i]
		if !exists {
			label = *info.Label
		}
		scale := info.Scale
		if scale == 0 {
			scale = defaultScale(lf.img)
		}

		f := exposure.FrameFromImage(lf.img, scale, label)
		f.Source = lf.filename
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", lf.filename, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// defaultScale is the largest value the image's pixel type can hold.
func defaultScale(img image.Image) float64 {
	if _, is16 := img.(*image.Gray16); is16 {
		return 0xFFFF
	}
	return 0xFF
}

func (fs *FileSource) Frames() []exposure.Frame { return fs.frames }

func (fs *FileSource) Configure(ctx context.Context, label exposure.IntegrationLabel) error {
	for i, f := range fs.frames {
		if f.Label == label {
			fs.selected = i
			return nil
		}
	}
	return fmt.Errorf("no %s frame loaded", label)
}

func (fs *FileSource) Capture(ctx context.Context) (exposure.Frame, error) {
	if err := ctx.Err(); err != nil {
		return exposure.Frame{}, err
	}
	if fs.selected < 0 {
		return exposure.Frame{}, fmt.Errorf("capture before configure")
	}
	f := fs.frames[fs.selected]
	f.Samples = f.Samples.Copy()
	return f, nil
}

// Plan brackets every label that was loaded, short to long.
func (fs *FileSource) Plan() Plan {
	p := Plan{}
	for _, f := range fs.frames {
		if n := len(p.Labels); n == 0 || p.Labels[n-1] != f.Label {
			p.Labels = append(p.Labels, f.Label)
		}
	}
	return p
}
