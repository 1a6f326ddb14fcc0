package exposure

import (
	"github.com/abworrall/tof-hdr/pkg/emath"
)

// A NormalizedFrame holds a Frame's samples divided by its exposure
// scale, so 1.0 is the sensor's ceiling at that integration time. Values
// are not clamped: readings above the ceiling survive until the masks and
// blenders decide what to do with them.
type NormalizedFrame struct {
	emath.FloatGrid
	Scale float64 // the scale the samples were divided by
	Label IntegrationLabel
}

// Normalize divides every sample by the frame's exposure scale.
func Normalize(f Frame) (NormalizedFrame, error) {
	if !(f.Scale > 0) {
		return NormalizedFrame{}, &DegenerateInputError{What: "exposure scale must be > 0", Value: f.Scale}
	}

	scale := f.Scale
	return NormalizedFrame{
		FloatGrid: f.Samples.Map(func(v float64) float64 { return v / scale }),
		Scale:     f.Scale,
		Label:     f.Label,
	}, nil
}

// Normalized wraps an already-normalized grid, e.g. the output of a
// previous fusion step that gets folded with the next exposure.
func Normalized(g emath.FloatGrid, scale float64, label IntegrationLabel) NormalizedFrame {
	return NormalizedFrame{FloatGrid: g, Scale: scale, Label: label}
}
