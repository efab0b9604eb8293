// Package fonts provides font faces for rendered text.
//
// The Go regular font ships with golang.org/x/image, so legend and
// graph rendering needs no font files on disk.
package fonts

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	parseOnce sync.Once
	parseErr  error
	regular   *truetype.Font
	bold      *truetype.Font
)

func parse() {
	regular, parseErr = truetype.Parse(goregular.TTF)
	if parseErr != nil {
		return
	}
	bold, parseErr = truetype.Parse(gobold.TTF)
}

// Regular returns the Go regular face at the given point size.
func Regular(size float64) (font.Face, error) {
	parseOnce.Do(parse)
	if parseErr != nil {
		return nil, parseErr
	}
	return truetype.NewFace(regular, &truetype.Options{Size: size}), nil
}

// Bold returns the Go bold face at the given point size, used for
// titles and legend headings.
func Bold(size float64) (font.Face, error) {
	parseOnce.Do(parse)
	if parseErr != nil {
		return nil, parseErr
	}
	return truetype.NewFace(bold, &truetype.Options{Size: size}), nil
}
