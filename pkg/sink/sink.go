package sink

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/abworrall/tof-hdr/pkg/tonemap"
)

// A Sink is where tone mapped frames go to be looked at.
type Sink interface {
	Show(ctx context.Context, df tonemap.DisplayFrame) error
}

// Func adapts a plain function into a Sink.
type Func func(ctx context.Context, df tonemap.DisplayFrame) error

func (f Func) Show(ctx context.Context, df tonemap.DisplayFrame) error { return f(ctx, df) }

// Discard drops every frame.
var Discard Sink = Func(func(context.Context, tonemap.DisplayFrame) error { return nil })

// PNGDir writes each frame it is shown as a numbered PNG. ToF sensors
// are low resolution, so frames can be blown up by an integer factor
// (nearest neighbour, to keep the pixels honest) before saving.
type PNGDir struct {
	Dir     string
	Prefix  string
	Upscale int

	mu    sync.Mutex
	count int
}

func NewPNGDir(dir string, upscale int) *PNGDir {
	return &PNGDir{Dir: dir, Prefix: "frame", Upscale: upscale}
}

func (p *PNGDir) Show(ctx context.Context, df tonemap.DisplayFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if df.Gray == nil {
		return fmt.Errorf("PNGDir.Show: empty frame")
	}

	p.mu.Lock()
	n := p.count
	p.count++
	p.mu.Unlock()

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("PNGDir.Show, mkdir '%s': %w", p.Dir, err)
	}
	filename := filepath.Join(p.Dir, fmt.Sprintf("%s-%05d.png", p.Prefix, n))
	return SavePNG(df, filename, p.Upscale)
}

// Count is how many frames have been shown so far.
func (p *PNGDir) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// SavePNG writes a display frame, enlarged by an integer factor if
// upscale > 1.
func SavePNG(df tonemap.DisplayFrame, filename string, upscale int) error {
	var img image.Image = df.Gray
	if upscale > 1 {
		b := df.Bounds()
		img = imaging.Resize(df.Gray, b.Dx()*upscale, b.Dy()*upscale, imaging.NearestNeighbor)
	}
	if err := imaging.Save(img, filename); err != nil {
		return fmt.Errorf("save '%s': %w", filename, err)
	}
	return nil
}
