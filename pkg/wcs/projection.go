package wcs

import (
	"fmt"
	"math"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// nativePole returns the native longitude of the celestial pole for a
// zenithal projection with reference latitude dec0.
func nativePole(dec0 float64) float64 {
	if dec0 >= 90 {
		return 0
	}
	return 180
}

// deproject converts intermediate coordinates (x, y), in degrees, into
// celestial (lon, lat) for a zenithal projection centred on (lon0, lat0).
// Unknown codes fall back to a plain offset.
func deproject(code string, x, y, lon0, lat0 float64) (float64, float64, error) {
	r := math.Hypot(x, y)
	var theta float64
	switch code {
	case "TAN":
		if r == 0 {
			theta = 90
		} else {
			theta = math.Atan2(rad2deg, r) * rad2deg
		}
	case "SIN":
		if r*deg2rad > 1 {
			return 0, 0, fmt.Errorf("SIN radius %v: %w", r, ErrProjection)
		}
		theta = math.Acos(r*deg2rad) * rad2deg
	default:
		return lon0 + x, lat0 + y, nil
	}
	phi := 0.0
	if r != 0 {
		phi = math.Atan2(x, -y) * rad2deg
	}

	phiP := nativePole(lat0)
	st, ct := math.Sincos(theta * deg2rad)
	sdp, cdp := math.Sincos(lat0 * deg2rad)
	sdphi, cdphi := math.Sincos((phi - phiP) * deg2rad)

	lon := lon0 + math.Atan2(-ct*sdphi, st*cdp-ct*sdp*cdphi)*rad2deg
	lat := math.Asin(clamp(st*sdp+ct*cdp*cdphi)) * rad2deg
	return normalizeLon(lon, lon0), lat, nil
}

// project is the inverse of deproject.
func project(code string, lon, lat, lon0, lat0 float64) (float64, float64, error) {
	switch code {
	case "TAN", "SIN":
	default:
		return lon - lon0, lat - lat0, nil
	}
	phiP := nativePole(lat0)
	sd, cd := math.Sincos(lat * deg2rad)
	sdp, cdp := math.Sincos(lat0 * deg2rad)
	sda, cda := math.Sincos((lon - lon0) * deg2rad)

	phi := phiP + math.Atan2(-cd*sda, sd*cdp-cd*sdp*cda)*rad2deg
	theta := math.Asin(clamp(sd*sdp+cd*cdp*cda)) * rad2deg

	var r float64
	switch code {
	case "TAN":
		if theta <= 0 {
			return 0, 0, fmt.Errorf("TAN at native latitude %v: %w", theta, ErrProjection)
		}
		st, ct := math.Sincos(theta * deg2rad)
		r = rad2deg * ct / st
	case "SIN":
		if theta < 0 {
			return 0, 0, fmt.Errorf("SIN at native latitude %v: %w", theta, ErrProjection)
		}
		r = rad2deg * math.Cos(theta*deg2rad)
	}
	sp, cp := math.Sincos(phi * deg2rad)
	return r * sp, -r * cp, nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// normalizeLon wraps lon into the half-open turn centred on ref.
func normalizeLon(lon, ref float64) float64 {
	for lon-ref > 180 {
		lon -= 360
	}
	for lon-ref <= -180 {
		lon += 360
	}
	return lon
}

// AngularSeparation returns the great-circle distance, in degrees, between
// two points given in degrees. It uses the Vincenty formula, which is
// stable for both tiny and antipodal separations.
func AngularSeparation(lon1, lat1, lon2, lat2 float64) float64 {
	sdlon, cdlon := math.Sincos((lon2 - lon1) * deg2rad)
	s1, c1 := math.Sincos(lat1 * deg2rad)
	s2, c2 := math.Sincos(lat2 * deg2rad)

	num1 := c2 * sdlon
	num2 := c1*s2 - s1*c2*cdlon
	denom := s1*s2 + c1*c2*cdlon
	return math.Atan2(math.Hypot(num1, num2), denom) * rad2deg
}
