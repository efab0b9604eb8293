package layer

import (
	"math"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// BlendMode names a pixel-wise arithmetic rule for combining two aligned
// rasters of the same year. Modes are data, not behavior: each tag
// selects a pure pixel function, so new combinators slot in without
// touching collection logic.
type BlendMode string

const (
	BlendAdd      BlendMode = "add"
	BlendSubtract BlendMode = "subtract"
)

// blendFunc combines two pixels given each side's nodata sentinel.
// Nodata acts as the additive identity; only two nodata pixels combine
// to nodata (the left side's sentinel).
type blendFunc func(a, b, nodataA, nodataB float64) float64

// isNodata matches a pixel against a nodata sentinel, including NaN
// sentinels, which never compare equal to themselves.
func isNodata(v, nodata float64) bool {
	if math.IsNaN(nodata) {
		return math.IsNaN(v)
	}
	return v == nodata
}

var blendFuncs = map[BlendMode]blendFunc{
	BlendAdd: func(a, b, nodataA, nodataB float64) float64 {
		aNull, bNull := isNodata(a, nodataA), isNodata(b, nodataB)
		if aNull && bNull {
			return nodataA
		}
		if aNull {
			a = 0
		}
		if bNull {
			b = 0
		}
		return a + b
	},
	BlendSubtract: func(a, b, nodataA, nodataB float64) float64 {
		aNull, bNull := isNodata(a, nodataA), isNodata(b, nodataB)
		if aNull && bNull {
			return nodataA
		}
		if aNull {
			a = 0
		}
		if bNull {
			b = 0
		}
		return a - b
	},
}

// Valid reports whether the mode names a known combinator.
func (m BlendMode) Valid() bool {
	_, ok := blendFuncs[m]
	return ok
}

// ParseBlendMode resolves a config-file blend mode name.
func ParseBlendMode(name string) (BlendMode, error) {
	m := BlendMode(name)
	if !m.Valid() {
		return "", errs.New(errs.InvalidConfig, "unknown blend mode %q", name)
	}
	return m, nil
}
