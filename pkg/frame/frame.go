// Package frame holds the presentation-format images that make up an
// animation. A frame applies to a single year and points at a PNG on
// disk; combining frames (alpha compositing, side-by-side merges) always
// produces a new file, never touches the inputs.
package frame

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

// Frame is a rendered image for a single year of the animation.
// Year 0 marks frames that are not year-specific, such as legends.
type Frame struct {
	Year int
	Path string
}

// New creates a frame for the given year and image path.
func New(year int, path string) Frame {
	return Frame{Year: year, Path: path}
}

// Composite alpha-blends another RGBA frame with this one. With
// sendToBottom the other frame becomes the background. The result is a
// new frame with this frame's year.
func (f Frame) Composite(other Frame, sendToBottom bool) (Frame, error) {
	top, err := imaging.Open(f.Path)
	if err != nil {
		return Frame{}, err
	}
	bottom, err := imaging.Open(other.Path)
	if err != nil {
		return Frame{}, err
	}
	if !sendToBottom {
		top, bottom = bottom, top
	}

	merged := imaging.Overlay(bottom, top, image.Pt(0, 0), 1.0)

	out := tempfiles.New(".png")
	if err := imaging.Save(merged, out); err != nil {
		return Frame{}, err
	}
	return Frame{Year: f.Year, Path: out}, nil
}

// MergeHorizontal lays one or more frames side by side after this one,
// top-aligned on a white canvas sized to fit them all. The result is a
// new frame with this frame's year.
func (f Frame) MergeHorizontal(frames ...Frame) (Frame, error) {
	images := make([]image.Image, 0, len(frames)+1)
	first, err := imaging.Open(f.Path)
	if err != nil {
		return Frame{}, err
	}
	images = append(images, first)
	for _, fr := range frames {
		img, err := imaging.Open(fr.Path)
		if err != nil {
			return Frame{}, err
		}
		images = append(images, img)
	}

	var totalWidth, maxHeight int
	for _, img := range images {
		totalWidth += img.Bounds().Dx()
		if h := img.Bounds().Dy(); h > maxHeight {
			maxHeight = h
		}
	}

	merged := imaging.New(totalWidth, maxHeight, color.NRGBA{255, 255, 255, 255})
	offset := 0
	for _, img := range images {
		merged = imaging.Paste(merged, img, image.Pt(offset, 0))
		offset += img.Bounds().Dx()
	}

	out := tempfiles.New(".png")
	if err := imaging.Save(merged, out); err != nil {
		return Frame{}, err
	}
	return Frame{Year: f.Year, Path: out}, nil
}
