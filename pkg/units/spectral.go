package units

import (
	"fmt"
	"strings"
)

const (
	// SpeedOfLight is c in m/s.
	SpeedOfLight = 299792458.0
	// Planck is h in J s.
	Planck = 6.62607015e-34
)

// Kind is the physical family of a spectral coordinate.
type Kind int

const (
	Unknown Kind = iota
	Frequency
	Wavelength
	Energy
	Velocity
)

func (k Kind) String() string {
	switch k {
	case Frequency:
		return "frequency"
	case Wavelength:
		return "wavelength"
	case Energy:
		return "energy"
	case Velocity:
		return "velocity"
	default:
		return "unknown"
	}
}

type spectralUnit struct {
	kind  Kind
	scale float64 // to Hz, m, J or m/s
}

var spectralUnits = map[string]spectralUnit{
	"Hz":  {Frequency, 1},
	"kHz": {Frequency, 1e3},
	"MHz": {Frequency, 1e6},
	"GHz": {Frequency, 1e9},
	"THz": {Frequency, 1e12},

	"m":        {Wavelength, 1},
	"cm":       {Wavelength, 1e-2},
	"mm":       {Wavelength, 1e-3},
	"um":       {Wavelength, 1e-6},
	"micron":   {Wavelength, 1e-6},
	"nm":       {Wavelength, 1e-9},
	"Angstrom": {Wavelength, 1e-10},
	"AA":       {Wavelength, 1e-10},

	"J":   {Energy, 1},
	"eV":  {Energy, 1.602176634e-19},
	"keV": {Energy, 1.602176634e-16},

	"m / s":  {Velocity, 1},
	"cm / s": {Velocity, 1e-2},
	"km / s": {Velocity, 1e3},
}

// Lookup classifies a spectral unit and returns its scale to SI.
func Lookup(unit string) (Kind, float64, error) {
	su, ok := spectralUnits[Canonical(strings.TrimSpace(unit))]
	if !ok {
		return Unknown, 0, fmt.Errorf("unknown spectral unit %q: %w", unit, ErrConversion)
	}
	return su.kind, su.scale, nil
}

// ConvertSpectral converts v from unit from to unit to. Conversions between
// velocity and any other family use the radio convention around restHz,
// which must then be positive.
func ConvertSpectral(v float64, from, to string, restHz float64) (float64, error) {
	if Canonical(from) == Canonical(to) {
		return v, nil
	}
	kf, sf, err := Lookup(from)
	if err != nil {
		return 0, err
	}
	kt, st, err := Lookup(to)
	if err != nil {
		return 0, err
	}
	si := v * sf
	if kf == kt {
		return si / st, nil
	}
	if (kf == Velocity || kt == Velocity) && restHz <= 0 {
		return 0, fmt.Errorf("%s to %s needs a rest frequency: %w", kf, kt, ErrConversion)
	}
	hz, err := toHz(si, kf, restHz)
	if err != nil {
		return 0, err
	}
	out, err := fromHz(hz, kt, restHz)
	if err != nil {
		return 0, err
	}
	return out / st, nil
}

func toHz(v float64, k Kind, restHz float64) (float64, error) {
	switch k {
	case Frequency:
		return v, nil
	case Wavelength:
		return SpeedOfLight / v, nil
	case Energy:
		return v / Planck, nil
	case Velocity:
		return restHz * (1 - v/SpeedOfLight), nil
	}
	return 0, ErrConversion
}

func fromHz(hz float64, k Kind, restHz float64) (float64, error) {
	switch k {
	case Frequency:
		return hz, nil
	case Wavelength:
		return SpeedOfLight / hz, nil
	case Energy:
		return hz * Planck, nil
	case Velocity:
		return SpeedOfLight * (1 - hz/restHz), nil
	}
	return 0, ErrConversion
}

// Quantity is a spectral value with its unit.
type Quantity struct {
	Value float64
	Unit  string
}

// Q returns the quantity v unit.
func Q(v float64, unit string) Quantity { return Quantity{Value: v, Unit: unit} }

// To converts q to unit, using restHz for velocity conversions.
func (q Quantity) To(unit string, restHz float64) (float64, error) {
	return ConvertSpectral(q.Value, q.Unit, unit, restHz)
}
