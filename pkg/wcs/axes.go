package wcs

import "strings"

// AxisType classifies a world axis by its CTYPE.
type AxisType int

const (
	Linear AxisType = iota
	Spectral
	Longitude
	Latitude
	Stokes
)

func (t AxisType) String() string {
	switch t {
	case Spectral:
		return "spectral"
	case Longitude:
		return "longitude"
	case Latitude:
		return "latitude"
	case Stokes:
		return "stokes"
	default:
		return "linear"
	}
}

var spectralPrefixes = []string{
	"FREQ", "ENER", "WAVN", "VRAD", "WAVE", "VOPT", "ZOPT", "AWAV", "VELO", "BETA", "FELO",
}

var celestialPairs = map[string]AxisType{
	"RA": Longitude, "DEC": Latitude,
	"GLON": Longitude, "GLAT": Latitude,
	"ELON": Longitude, "ELAT": Latitude,
	"SLON": Longitude, "SLAT": Latitude,
	"HPLN": Longitude, "HPLT": Latitude,
}

// TypeOf classifies a FITS CTYPE string.
func TypeOf(ctype string) AxisType {
	c := strings.ToUpper(strings.TrimSpace(ctype))
	if c == "STOKES" {
		return Stokes
	}
	for _, p := range spectralPrefixes {
		if strings.HasPrefix(c, p) {
			return Spectral
		}
	}
	head := c
	if len(head) > 4 {
		head = head[:4]
	}
	head = strings.TrimRight(head, "-")
	if t, ok := celestialPairs[head]; ok {
		return t
	}
	return Linear
}

// projectionCode returns the three letter algorithm code of a celestial
// CTYPE such as "RA---TAN", or "" for an unprojected axis.
func projectionCode(ctype string) string {
	c := strings.ToUpper(strings.TrimSpace(ctype))
	if len(c) != 8 || c[4] != '-' {
		return ""
	}
	return strings.TrimLeft(c[4:], "-")
}

// FindAxis returns the index of the first world axis of type want, or -1.
func FindAxis(t Transform, want AxisType) int {
	for i := 0; i < t.NAxis(); i++ {
		if TypeOf(t.AxisName(i)) == want {
			return i
		}
	}
	return -1
}

// IsCelestial reports whether world axis i of t is a celestial axis.
func IsCelestial(t Transform, i int) bool {
	at := TypeOf(t.AxisName(i))
	return at == Longitude || at == Latitude
}
