package pipeline

import (
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/tof-hdr/pkg/exposure"
	"github.com/abworrall/tof-hdr/pkg/fuse"
	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

/* Example config file; every field is optional, missing ones keep the
   defaults from NewConfig.

strategy: weighted-sigmoid
saturationthresholdhigh: 0.784
gain: 20
weightbounds:
  low: 0.3
  high: 0.7
cliplimit: 2.0
tilesize:
  x: 8
  y: 8
gamma: 0.8
operator: none
dumpgrids: true
dumpdir: /tmp/tof-hdr

*/

// Config holds every tunable of a fusion cycle. Levels are in normalized
// units (fractions of the short exposure's scale).
type Config struct {
	Verbosity int

	Strategy string

	ValidLow                  float64
	ValidHigh                 float64
	SaturationThresholdHigh   float64
	UnderexposureThresholdLow float64
	Gain                      float64 // 0 means long.Scale/short.Scale

	LongClipLevel      float64
	LongSaturatedLevel float64
	ShortFloorLevel    float64
	ShortFloorPin      float64

	SigmoidStrength float64
	WeightBounds    WeightBounds

	BlurRadius       int
	CompressExponent float64

	Operator  string // global tone mapping operator, before equalization
	ClipLimit float64
	TileSize  image.Point
	Gamma     float64
	Equalizer string

	DumpGrids bool   // write PNGs of the intermediate grids ...
	DumpDir   string // ... into this dir
}

type WeightBounds struct {
	Low  float64
	High float64
}

func NewConfig() Config {
	p := fuse.DefaultParams()
	tm := tonemap.DefaultToneMapper()

	return Config{
		Strategy:                  fuse.PrioritySelectName,
		ValidLow:                  p.Masks.ValidLow,
		ValidHigh:                 p.Masks.ValidHigh,
		SaturationThresholdHigh:   p.SaturationHigh,
		UnderexposureThresholdLow: p.UnderexposureLow,
		Gain:                      p.Gain,
		LongClipLevel:             p.LongClipLevel,
		LongSaturatedLevel:        p.LongSaturatedLevel,
		ShortFloorLevel:           p.ShortFloorLevel,
		ShortFloorPin:             p.ShortFloorPin,
		SigmoidStrength:           p.SigmoidStrength,
		WeightBounds:              WeightBounds{Low: p.WeightLow, High: p.WeightHigh},
		BlurRadius:                p.BlurRadius,
		CompressExponent:          p.CompressExponent,
		Operator:                  tonemap.NoOperator,
		ClipLimit:                 tm.ClipLimit,
		TileSize:                  tm.Tiles,
		Gamma:                     tm.Gamma,
		Equalizer:                 tonemap.DefaultEqualizerName,
		DumpDir:                   ".",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("read '%s': %w", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("parse '%s': %w", filename, err)
	}
	return c, c.Finalize()
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Finalize fills in blanks and checks that every parameter is in range,
// so a bad config fails before any pixel is touched.
func (c *Config) Finalize() error {
	if c.Strategy == "" {
		c.Strategy = fuse.PrioritySelectName
	}
	if c.Equalizer == "" {
		c.Equalizer = tonemap.DefaultEqualizerName
	}

	if _, err := c.Blender(); err != nil {
		return err
	}
	if _, err := c.ToneMapper(); err != nil {
		return err
	}
	if c.DumpGrids && c.DumpDir == "" {
		return exposure.InvalidConfig("dumpdir", c.DumpDir, "needed when dumpgrids is set")
	}
	return nil
}

func (c Config) Params() fuse.Params {
	return fuse.Params{
		Masks:              exposure.MaskBuilder{ValidLow: c.ValidLow, ValidHigh: c.ValidHigh},
		SaturationHigh:     c.SaturationThresholdHigh,
		UnderexposureLow:   c.UnderexposureThresholdLow,
		Gain:               c.Gain,
		LongClipLevel:      c.LongClipLevel,
		LongSaturatedLevel: c.LongSaturatedLevel,
		ShortFloorLevel:    c.ShortFloorLevel,
		ShortFloorPin:      c.ShortFloorPin,
		SigmoidStrength:    c.SigmoidStrength,
		WeightLow:          c.WeightBounds.Low,
		WeightHigh:         c.WeightBounds.High,
		BlurRadius:         c.BlurRadius,
		CompressExponent:   c.CompressExponent,
	}
}

func (c Config) Blender() (fuse.Blender, error) {
	return fuse.NewBlender(c.Strategy, c.Params())
}

func (c Config) ToneMapper() (tonemap.ToneMapper, error) {
	eq, err := tonemap.NewEqualizer(c.Equalizer)
	if err != nil {
		return tonemap.ToneMapper{}, err
	}
	tm := tonemap.ToneMapper{
		Operator:  c.Operator,
		ClipLimit: c.ClipLimit,
		Tiles:     c.TileSize,
		Gamma:     c.Gamma,
		Equalizer: eq,
	}
	return tm, tm.Validate()
}
