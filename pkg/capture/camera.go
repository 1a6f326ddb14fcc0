package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/abworrall/tof-hdr/pkg/exposure"
)

// A Camera is anything that can be switched to an integration time and
// then asked for a frame. Device discovery, stream selection and
// acquisition start/stop are the implementation's business.
type Camera interface {
	Configure(ctx context.Context, label exposure.IntegrationLabel) error
	Capture(ctx context.Context) (exposure.Frame, error)
}

// A Plan says which integration times to bracket, in capture order, and
// how long to let the hardware settle after each change.
type Plan struct {
	Labels []exposure.IntegrationLabel
	Settle time.Duration
}

func DefaultPlan() Plan {
	return Plan{Labels: []exposure.IntegrationLabel{exposure.Short, exposure.Long}}
}

func (p Plan) String() string {
	return fmt.Sprintf("plan%v, settle %s", p.Labels, p.Settle)
}

// Bracket captures one frame per label in the plan: Configure, wait for
// the settle time, Capture. The frame is tagged with the label it was
// configured for. Cancelling ctx aborts between steps.
func Bracket(ctx context.Context, cam Camera, plan Plan) ([]exposure.Frame, error) {
	if len(plan.Labels) == 0 {
		return nil, fmt.Errorf("bracket: empty plan")
	}

	frames := make([]exposure.Frame, 0, len(plan.Labels))
	for _, label := range plan.Labels {
		if err := cam.Configure(ctx, label); err != nil {
			return nil, fmt.Errorf("configure %s: %w", label, err)
		}

		if plan.Settle > 0 {
			timer := time.NewTimer(plan.Settle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := cam.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", label, err)
		}
		f.Label = label
		frames = append(frames, f)
	}

	return frames, nil
}
