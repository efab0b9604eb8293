package layer

import "github.com/HarshCasper/gcbmanimation/pkg/errs"

// Units describes the measurement units of a layer's pixel values: a
// scale factor relative to tonnes of carbon and whether values are per
// hectare or absolute.
type Units int

const (
	UnitsBlank Units = iota
	UnitsTc
	UnitsKtc
	UnitsMtc
	UnitsTcPerHa
	UnitsKtcPerHa
	UnitsMtcPerHa
)

type unitsSpec struct {
	scale float64
	label string
	perHa bool
}

var unitsSpecs = map[Units]unitsSpec{
	UnitsBlank:    {1, "", false},
	UnitsTc:       {1, "tC/yr", false},
	UnitsKtc:      {1e3, "KtC/yr", false},
	UnitsMtc:      {1e6, "MtC/yr", false},
	UnitsTcPerHa:  {1, "tC/ha/yr", true},
	UnitsKtcPerHa: {1e3, "KtC/ha/yr", true},
	UnitsMtcPerHa: {1e6, "MtC/ha/yr", true},
}

// Scale returns the unit's scale factor relative to tonnes of carbon.
func (u Units) Scale() float64 { return unitsSpecs[u].scale }

// Label returns the display label, e.g. "tC/ha/yr".
func (u Units) Label() string { return unitsSpecs[u].label }

// PerHectare reports whether values are normalized by area.
func (u Units) PerHectare() bool { return unitsSpecs[u].perHa }

var unitsNames = map[string]Units{
	"":       UnitsTcPerHa,
	"blank":  UnitsBlank,
	"tc":     UnitsTc,
	"ktc":    UnitsKtc,
	"mtc":    UnitsMtc,
	"tc_ha":  UnitsTcPerHa,
	"ktc_ha": UnitsKtcPerHa,
	"mtc_ha": UnitsMtcPerHa,
}

// ParseUnits resolves a config-file units name. The empty string maps to
// tC/ha/yr, the native units of GCBM spatial output.
func ParseUnits(name string) (Units, error) {
	if u, ok := unitsNames[name]; ok {
		return u, nil
	}
	return UnitsBlank, errs.New(errs.InvalidConfig, "unknown units %q", name)
}
