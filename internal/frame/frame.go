// Package frame holds the observer geometry shared by every observer-relative
// computation: equatorial coordinates for bodies and stars, and Earth-fixed
// vectors for satellites, are both rotated into the same local horizon.
package frame

import (
	"math"

	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/timescale"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378.137              // semi-major axis (km)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Vec3 is a Cartesian vector in kilometers.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Horizontal is a direction in the observer's local horizon system.
// Azimuth is measured from North through East in [0, 360).
type Horizontal struct {
	Altitude float64 // degrees, [-90, 90]
	Azimuth  float64 // degrees, [0, 360)
}

// Look is a horizontal direction plus slant range to a nearby target.
type Look struct {
	Horizontal
	RangeKm float64
}

// Frame is an observer Location with its Earth-fixed position precomputed.
// A Frame is a plain value and safe for concurrent use.
type Frame struct {
	loc            Location
	sinLat, cosLat float64
	sinLon, cosLon float64
	ecef           Vec3
}

// New builds the Frame for loc. The location is assumed valid; use
// NewLocation to check caller input first.
func New(loc Location) Frame {
	lat := loc.Latitude * math.Pi / 180
	lon := loc.Longitude * math.Pi / 180
	f := Frame{
		loc:    loc,
		sinLat: math.Sin(lat),
		cosLat: math.Cos(lat),
		sinLon: math.Sin(lon),
		cosLon: math.Cos(lon),
	}

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*f.sinLat*f.sinLat)
	h := loc.Elevation / 1000
	f.ecef = Vec3{
		X: (n + h) * f.cosLat * f.cosLon,
		Y: (n + h) * f.cosLat * f.sinLon,
		Z: (n*(1-wgs84E2) + h) * f.sinLat,
	}
	return f
}

// Location returns the observer location.
func (f Frame) Location() Location { return f.loc }

// ECEF returns the observer's Earth-fixed position in km.
func (f Frame) ECEF() Vec3 { return f.ecef }

// LocalSidereal returns the apparent local sidereal time at in, in radians.
func (f Frame) LocalSidereal(in timescale.Instant) float64 {
	gast := sidereal.Apparent(in.JD()).Rad()
	return gast + f.loc.Longitude*math.Pi/180
}

// Horizontal converts apparent equatorial coordinates of date to altitude and
// azimuth for this observer at in. No refraction is applied.
func (f Frame) Horizontal(ra unit.RA, dec unit.Angle, in timescale.Instant) Horizontal {
	ha := f.LocalSidereal(in) - ra.Rad()
	sinDec, cosDec := math.Sincos(dec.Rad())
	sinHA, cosHA := math.Sincos(ha)

	alt := math.Asin(clamp(f.sinLat*sinDec + f.cosLat*cosDec*cosHA))
	az := math.Atan2(-cosDec*sinHA, sinDec*f.cosLat-cosDec*cosHA*f.sinLat)

	return Horizontal{
		Altitude: alt * 180 / math.Pi,
		Azimuth:  NormalizeDegrees(az * 180 / math.Pi),
	}
}

// LookAngles rotates the Earth-fixed target position (km) into the observer's
// South-East-Zenith frame.
func (f Frame) LookAngles(target Vec3) Look {
	rx := target.X - f.ecef.X
	ry := target.Y - f.ecef.Y
	rz := target.Z - f.ecef.Z

	south := f.sinLat*f.cosLon*rx + f.sinLat*f.sinLon*ry - f.cosLat*rz
	east := -f.sinLon*rx + f.cosLon*ry
	zenith := f.cosLat*f.cosLon*rx + f.cosLat*f.sinLon*ry + f.sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return Look{Horizontal: Horizontal{Altitude: 90}}
	}
	el := math.Asin(clamp(zenith / rng))
	az := math.Atan2(east, -south)

	return Look{
		Horizontal: Horizontal{
			Altitude: el * 180 / math.Pi,
			Azimuth:  NormalizeDegrees(az * 180 / math.Pi),
		},
		RangeKm: rng,
	}
}

// NormalizeDegrees maps an angle into [0, 360).
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// WrapLongitude maps an angle into [-180, 180].
func WrapLongitude(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
