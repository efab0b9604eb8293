package animate

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

func solidFrame(t *testing.T, dir string, year, width, height int, c color.RGBA) frame.Frame {
	t.Helper()
	dc := gg.NewContext(width, height)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
	dc.Clear()
	path := filepath.Join(dir, fmt.Sprintf("f%d_%dx%d.png", year, width, height))
	if err := dc.SavePNG(path); err != nil {
		t.Fatalf("save frame: %v", err)
	}
	return frame.New(year, path)
}

func TestQuadrantLayoutRender(t *testing.T) {
	dir := t.TempDir()
	layout := NewQuadrantLayout(
		Percent{50, 60}, Percent{50, 60}, Percent{50, 40}, Percent{50, 40})

	frames := [4]frame.Frame{
		solidFrame(t, dir, 2018, 40, 30, color.RGBA{255, 0, 0, 255}),
		solidFrame(t, dir, 2018, 30, 40, color.RGBA{0, 255, 0, 255}),
		solidFrame(t, dir, 2018, 50, 25, color.RGBA{0, 0, 255, 255}),
		solidFrame(t, dir, 2018, 20, 20, color.RGBA{0, 0, 0, 255}),
	}
	out, err := layout.Render(frames, [4]string{"A", "B", "C", ""}, "Test, Year: 2018", 640, 480)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Year != 2018 {
		t.Errorf("frame year = %d, want 2018", out.Year)
	}
	img, err := imaging.Open(out.Path)
	if err != nil {
		t.Fatalf("open composed frame: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Errorf("composed frame is %dx%d, want 640x480", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

type fakeIndicator struct {
	dir   string
	years []int
}

func (f *fakeIndicator) Title() string { return "Test Indicator" }

func (f *fakeIndicator) MapUnits() layer.Units { return layer.UnitsTcPerHa }

func (f *fakeIndicator) RenderMapFrames(ctx context.Context, bbox *layer.BoundingBox, colorizer layer.Colorizer) ([]frame.Frame, *layer.Legend, error) {
	frames := make([]frame.Frame, 0, len(f.years))
	for _, year := range f.years {
		frames = append(frames, solidFrameRaw(f.dir, year, color.RGBA{0, 128, 0, 255}))
	}
	legend := &layer.Legend{Entries: []layer.LegendEntry{
		{Kind: layer.EntryAbove, Value: 0, Label: "> 0.00", Color: color.RGBA{0, 128, 0, 255}},
	}}
	return frames, legend, nil
}

func (f *fakeIndicator) RenderGraphFrames(ctx context.Context, bbox *layer.BoundingBox) ([]frame.Frame, error) {
	frames := make([]frame.Frame, 0, len(f.years))
	for _, year := range f.years {
		frames = append(frames, solidFrameRaw(f.dir, year, color.RGBA{0, 0, 128, 255}))
	}
	return frames, nil
}

func solidFrameRaw(dir string, year int, c color.RGBA) frame.Frame {
	dc := gg.NewContext(20, 20)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
	dc.Clear()
	path := filepath.Join(dir, fmt.Sprintf("raw_%d_%d%d%d.png", year, c.R, c.G, c.B))
	_ = dc.SavePNG(path)
	return frame.New(year, path)
}

func TestAnimatorWritesFrameSequence(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	ind := &fakeIndicator{dir: dir, years: []int{2018, 2019, 2020}}

	a := New(nil, []Renderer{ind}, outDir, WithDimensions(320, 240))
	if err := a.Render(context.Background(), nil, 0, 0); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// 3 years plus the duplicated final frame.
	for i := 1; i <= 4; i++ {
		path := filepath.Join(outDir, fmt.Sprintf("Test_Indicator_%04d.png", i))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing sequence frame %s", path)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "Test_Indicator_0005.png")); err == nil {
		t.Error("unexpected extra frame in sequence")
	}
}

func TestAnimatorInvertedYearRange(t *testing.T) {
	dir := t.TempDir()
	ind := &fakeIndicator{dir: dir, years: []int{2018, 2019, 2020}}

	a := New(nil, []Renderer{ind}, filepath.Join(dir, "out"), WithDimensions(160, 120))
	err := a.Render(context.Background(), nil, 2020, 2018)
	if !errs.Is(err, errs.InvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG for an empty year range", err)
	}
}

func TestAnimatorMissingGraphFrame(t *testing.T) {
	dir := t.TempDir()
	ind := &fakeIndicator{dir: dir, years: []int{2018, 2020}}

	a := New(nil, []Renderer{ind}, filepath.Join(dir, "out"), WithDimensions(160, 120))
	// 2019 has no graph frame, so an explicit 2018-2020 range fails.
	if err := a.Render(context.Background(), nil, 2018, 2020); err == nil {
		t.Error("expected an error for the missing 2019 frame")
	}
}

func TestAnimatorCancelled(t *testing.T) {
	dir := t.TempDir()
	ind := &fakeIndicator{dir: dir, years: []int{2018}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(nil, []Renderer{ind}, filepath.Join(dir, "out"), WithDimensions(160, 120))
	if err := a.Render(ctx, nil, 0, 0); err == nil {
		t.Error("render should honor context cancellation")
	}
}
