package colorize

import (
	"image/color"
	"math"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// A palette turns a requested number of classes into that many display
// colors. Sequential ramps interpolate between anchor colors; the hls
// palette spaces hues evenly around the color wheel.
type paletteFunc func(n int) []color.RGBA

var palettes = map[string]paletteFunc{
	"hls":     hlsPalette,
	"Greens":  ramp(color.RGBA{229, 245, 224, 255}, color.RGBA{0, 68, 27, 255}),
	"Blues":   ramp(color.RGBA{222, 235, 247, 255}, color.RGBA{8, 48, 107, 255}),
	"Reds":    ramp(color.RGBA{254, 224, 210, 255}, color.RGBA{103, 0, 13, 255}),
	"Oranges": ramp(color.RGBA{254, 230, 206, 255}, color.RGBA{127, 39, 4, 255}),
	"Purples": ramp(color.RGBA{239, 237, 245, 255}, color.RGBA{63, 0, 125, 255}),
	"Greys":   ramp(color.RGBA{240, 240, 240, 255}, color.RGBA{37, 37, 37, 255}),
}

// Colors returns n colors from the named palette. The palette name is
// user-supplied configuration, so an unknown name is an INVALID_CONFIG
// error rather than a panic.
func Colors(palette string, n int) ([]color.RGBA, error) {
	fn, ok := palettes[palette]
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "unknown palette: "+palette)
	}
	if n < 1 {
		return nil, errs.New(errs.InvalidConfig, "palette size must be positive")
	}
	return fn(n), nil
}

// Palettes returns the available palette names.
func Palettes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	return names
}

func hlsPalette(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := range colors {
		h := math.Mod(float64(i)/float64(n)+0.01, 1)
		colors[i] = hslToRGB(h, 0.6, 0.65)
	}
	return colors
}

func ramp(from, to color.RGBA) paletteFunc {
	return func(n int) []color.RGBA {
		colors := make([]color.RGBA, n)
		for i := range colors {
			t := 0.0
			if n > 1 {
				t = float64(i) / float64(n-1)
			}
			colors[i] = color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			}
		}
		return colors
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// hslToRGB converts hue/lightness/saturation in [0, 1] to RGB.
func hslToRGB(h, l, s float64) color.RGBA {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return color.RGBA{v, v, v, 255}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r := hueToChannel(p, q, h+1.0/3.0)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3.0)
	return color.RGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
