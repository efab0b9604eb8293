package layer

import "image/color"

// EntryKind classifies how a legend entry matches pixel values.
type EntryKind int

const (
	// EntryExact matches a single pixel value (interpreted layers).
	EntryExact EntryKind = iota
	// EntryBelow matches values at or below a threshold.
	EntryBelow
	// EntryRange matches values in a half-open interval (min, max].
	EntryRange
	// EntryAbove matches values above a threshold.
	EntryAbove
)

// LegendEntry maps a pixel value or value range to a display color and
// label.
type LegendEntry struct {
	Kind  EntryKind
	Value float64 // exact value or threshold for Below/Above
	Min   float64 // range lower bound (exclusive)
	Max   float64 // range upper bound (inclusive)
	Label string
	Color color.RGBA
}

// Legend describes the color-to-value mapping of a rendered collection.
// A legend is computed once across the full value range of a collection,
// never per frame, so colors are comparable across the whole animation.
type Legend struct {
	Title   string
	Entries []LegendEntry
}

// ColorFor returns the color for a pixel value, or ok=false when no
// entry matches (the pixel renders as background/transparent).
func (l *Legend) ColorFor(v float64) (color.RGBA, bool) {
	for _, e := range l.Entries {
		switch e.Kind {
		case EntryExact:
			if v == e.Value {
				return e.Color, true
			}
		case EntryBelow:
			if v <= e.Value {
				return e.Color, true
			}
		case EntryRange:
			if v > e.Min && v <= e.Max {
				return e.Color, true
			}
		case EntryAbove:
			if v > e.Value {
				return e.Color, true
			}
		}
	}
	return color.RGBA{}, false
}
