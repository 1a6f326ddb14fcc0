package fuse

import (
	"fmt"
	"strings"

	"github.com/abworrall/tof-hdr/pkg/emath"
	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// A Blender combines a short and a long exposure of the same scene into
// one grid. Blend returns values in whatever range the strategy
// naturally produces; Fuse does the common rescale to [0,1].
type Blender interface {
	Name() string
	Blend(short, long exposure.NormalizedFrame) (emath.FloatGrid, error)
}

const (
	PrioritySelectName  = "priority-select"
	WeightedSigmoidName = "weighted-sigmoid"
	MaxCompressName     = "max-with-compression"
)

var Strategies = []string{PrioritySelectName, WeightedSigmoidName, MaxCompressName}

func ListStrategies() string {
	return strings.Join(Strategies, ", ")
}

func NewBlender(name string, p Params) (Blender, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch name {
	case PrioritySelectName:
		return PrioritySelect{p}, nil
	case WeightedSigmoidName:
		return WeightedSigmoid{p}, nil
	case MaxCompressName:
		return MaxCompress{p}, nil
	default:
		return nil, exposure.InvalidConfig("strategy", name, fmt.Sprintf("wanted one of [%s]", ListStrategies()))
	}
}

// Fuse runs the blender and then rescales the result so min is 0 and max
// is 1. A flat result (e.g. two blank frames) has no range to stretch:
// it comes back unscaled, with Normalized=false, rather than as an error.
func Fuse(b Blender, short, long exposure.NormalizedFrame) (FusedFrame, error) {
	if !short.SameShape(long.FloatGrid) {
		return FusedFrame{}, &exposure.ShapeMismatchError{Want: short.Dims(), Got: long.Dims(), Index: -1}
	}

	raw, err := b.Blend(short, long)
	if err != nil {
		return FusedFrame{}, fmt.Errorf("%s: %w", b.Name(), err)
	}

	out, ok := raw.RescaleUnit()
	return FusedFrame{FloatGrid: out, Normalized: ok, Strategy: b.Name()}, nil
}
