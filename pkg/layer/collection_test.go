package layer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
)

// stubColorizer implements Colorizer with flat 2x2 PNGs, recording how
// often legends are computed.
type stubColorizer struct {
	dir         string
	legendCalls int
	colorized   int
}

func (s *stubColorizer) CreateLegend(layers []*Layer, palette string) (*Legend, error) {
	s.legendCalls++
	return &Legend{Title: palette, Entries: []LegendEntry{
		{Kind: EntryAbove, Value: -1e9, Color: color.RGBA{0, 128, 0, 255}},
	}}, nil
}

func (s *stubColorizer) Colorize(l *Layer, legend *Legend, opts ColorizeOptions) (frame.Frame, error) {
	s.colorized++
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	path := filepath.Join(s.dir, filepath.Base(l.Path())+".png")
	f, err := os.Create(path)
	if err != nil {
		return frame.Frame{}, err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return frame.Frame{}, err
	}
	return frame.New(l.Year(), path), nil
}

func TestAppendAndEmpty(t *testing.T) {
	c := NewCollection()
	if !c.Empty() {
		t.Error("new collection should be empty")
	}
	c.Append(New("x.asc", 2001))
	if c.Empty() || c.Len() != 1 {
		t.Error("append should grow the collection")
	}
}

func TestBlendIntoEmptyAdoptsOther(t *testing.T) {
	dir := t.TempDir()
	other := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "a_2001.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2001),
		New(writeRaster(t, filepath.Join(dir, "a_2002.asc"), 0, 1, -9999.0, [][]float64{{2}}), 2002),
	))

	composite, err := NewCollection(WithPalette("Greens")).Blend(other, BlendAdd)
	if err != nil {
		t.Fatalf("Blend: %v", err)
	}
	if composite.Len() != 2 {
		t.Fatalf("composite has %d layers, want 2", composite.Len())
	}
	if composite.Palette() != "Greens" {
		t.Error("composite should keep the receiver's palette")
	}
	// Adoption, not copies: the fold's first step reuses the discovered
	// layers directly.
	if composite.Layers()[0] != other.Layers()[0] {
		t.Error("blend into empty should adopt the other collection's layers")
	}
}

func TestBlendMatchesByYear(t *testing.T) {
	dir := t.TempDir()
	// Intentionally different append order on the two sides.
	a := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "a1.asc"), 0, 1, -9999.0, [][]float64{{10}}), 2001),
		New(writeRaster(t, filepath.Join(dir, "a2.asc"), 0, 1, -9999.0, [][]float64{{20}}), 2002),
	))
	b := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "b2.asc"), 0, 1, -9999.0, [][]float64{{2}}), 2002),
		New(writeRaster(t, filepath.Join(dir, "b1.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2001),
	))

	blended, err := a.Blend(b, BlendSubtract)
	if err != nil {
		t.Fatalf("Blend: %v", err)
	}
	got2001 := openRaster(t, blended.findYear(2001).Path())
	got2002 := openRaster(t, blended.findYear(2002).Path())
	if got2001.At(0, 0) != 9 {
		t.Errorf("2001 = %v, want 9", got2001.At(0, 0))
	}
	if got2002.At(0, 0) != 18 {
		t.Errorf("2002 = %v, want 18", got2002.At(0, 0))
	}
}

func TestBlendYearMismatchFails(t *testing.T) {
	dir := t.TempDir()
	a := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "a.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2001),
	))
	b := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "b.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2003),
	))
	if _, err := a.Blend(b, BlendAdd); !errs.Is(err, errs.Alignment) {
		t.Errorf("year mismatch should be ALIGNMENT, got %v", err)
	}

	c := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "c.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2001),
		New(writeRaster(t, filepath.Join(dir, "c2.asc"), 0, 1, -9999.0, [][]float64{{1}}), 2002),
	))
	if _, err := a.Blend(c, BlendAdd); !errs.Is(err, errs.Alignment) {
		t.Errorf("layer count mismatch should be ALIGNMENT, got %v", err)
	}
}

func TestBlendIdenticalAddThenSubtractYieldsZero(t *testing.T) {
	dir := t.TempDir()
	values := [][]float64{{3, -9999}, {5, 7}}
	a := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "npp_2001.asc"), 0, 2, -9999.0, values), 2001),
	))
	b := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "rh_2001.asc"), 0, 2, -9999.0, values), 2001),
	))

	// The composite fold: empty + (A, add) + (B, subtract).
	composite, err := NewCollection().Blend(a, BlendAdd)
	if err != nil {
		t.Fatal(err)
	}
	composite, err = composite.Blend(b, BlendSubtract)
	if err != nil {
		t.Fatal(err)
	}

	got := openRaster(t, composite.Layers()[0].Path())
	for i, v := range got.Data {
		if !got.IsNodata(v) && v != 0 {
			t.Errorf("pixel %d = %v, want 0 or nodata", i, v)
		}
	}
}

func TestRenderEmptyCollectionRejected(t *testing.T) {
	_, _, err := NewCollection().Render(context.Background(), nil, 0, 0, &stubColorizer{dir: t.TempDir()})
	if !errs.Is(err, errs.DiscoveryEmpty) {
		t.Errorf("empty render should be DISCOVERY_EMPTY, got %v", err)
	}
}

func TestRenderFramesAscendByYear(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "npp_2002.asc"), 0, 2, -9999.0, fullGrid(2, 2, 2)), 2002),
		New(writeRaster(t, filepath.Join(dir, "npp_2001.asc"), 0, 2, -9999.0, fullGrid(2, 2, 1)), 2001),
	))

	colorizer := &stubColorizer{dir: dir}
	frames, legend, err := c.Render(context.Background(), nil, 0, 0, colorizer)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if legend == nil {
		t.Fatal("render should produce a legend")
	}
	if colorizer.legendCalls != 1 {
		t.Errorf("legend computed %d times, want once for the whole collection", colorizer.legendCalls)
	}
	years := make([]int, len(frames))
	for i, f := range frames {
		years[i] = f.Year
	}
	if len(years) != 2 || years[0] != 2001 || years[1] != 2002 {
		t.Errorf("frame years = %v, want [2001 2002]", years)
	}
}

func TestRenderFillsMissingYearsWithBackground(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "npp_2001.asc"), 0, 2, -9999.0, fullGrid(2, 2, 1)), 2001),
		New(writeRaster(t, filepath.Join(dir, "npp_2003.asc"), 0, 2, -9999.0, fullGrid(2, 2, 3)), 2003),
	))

	frames, _, err := c.Render(context.Background(), nil, 2001, 2003, &stubColorizer{dir: dir})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[1].Year != 2002 {
		t.Errorf("middle frame year = %d, want 2002", frames[1].Year)
	}
	// 2002 has no layer: its frame is the shared background image.
	if frames[1].Path == frames[0].Path || frames[1].Path == frames[2].Path {
		t.Error("placeholder frame should not reuse a data frame's image")
	}
}

func TestRenderCancelled(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(WithLayers(
		New(writeRaster(t, filepath.Join(dir, "npp_2001.asc"), 0, 2, -9999.0, fullGrid(2, 2, 1)), 2001),
	))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.Render(ctx, nil, 0, 0, &stubColorizer{dir: dir}); err == nil {
		t.Error("render should honor context cancellation")
	}
}
