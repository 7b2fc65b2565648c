package ephemeris

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/elliptic"
	"github.com/soniakeys/meeus/v3/illum"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/saturnring"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/large-farva/skyengine/internal/skyerr"
)

// AU is the astronomical unit in km.
const AU = 149597870.7

// Earth equatorial radius used for lunar and solar parallax, km.
const earthRadiusKm = 6378.14

// Geocentric is an apparent geocentric position of date.
type Geocentric struct {
	Lon        unit.Angle // apparent ecliptic longitude
	Lat        unit.Angle // ecliptic latitude
	RA         unit.RA
	Dec        unit.Angle
	DistanceKm float64
}

// PlanetGeometry is a planet's apparent place plus the Sun-planet-Earth
// triangle its brightness depends on.
type PlanetGeometry struct {
	RA         unit.RA
	Dec        unit.Angle
	DistanceKm float64
	SunDist    float64    // planet-Sun distance r, AU
	EarthDist  float64    // planet-Earth distance Δ, AU
	EarthSun   float64    // Earth-Sun distance R, AU
	Phase      unit.Angle // phase angle i

	// Saturn only: Earth's Saturnicentric latitude referred to the ring
	// plane (B) and the Sun-Earth Saturnicentric longitude difference (ΔU).
	RingTilt unit.Angle
	RingΔU   unit.Angle
}

// Sun returns the apparent geocentric Sun at jde.
func (d *Dataset) Sun(jde float64) Geocentric {
	T := base.J2000Century(jde)
	ra, dec := solar.ApparentEquatorial(jde)
	return Geocentric{
		Lon:        solar.ApparentLongitude(T),
		RA:         ra,
		Dec:        dec,
		DistanceKm: solar.Radius(T) * AU,
	}
}

// Moon returns the apparent geocentric Moon at jde.
func (d *Dataset) Moon(jde float64) Geocentric {
	λ, β, Δ := moonposition.Position(jde)
	Δψ, Δε := nutation.Nutation(jde)
	λ += Δψ
	ε := nutation.MeanObliquity(jde) + Δε
	ra, dec := coord.EclToEq(λ, β, ε.Sin(), ε.Cos())
	return Geocentric{
		Lon:        λ,
		Lat:        β,
		RA:         ra,
		Dec:        dec,
		DistanceKm: Δ,
	}
}

// MoonPhaseAngle returns the Sun-Moon-Earth angle at jde in degrees.
// 0 is full, 180 is new.
func (d *Dataset) MoonPhaseAngle(jde float64) float64 {
	sun := d.Sun(jde)
	moon := d.Moon(jde)
	cosψ := moon.Lat.Cos() * math.Cos(moon.Lon.Rad()-sun.Lon.Rad())
	ψ := math.Acos(math.Max(-1, math.Min(1, cosψ)))
	i := math.Atan2(sun.DistanceKm*math.Sin(ψ), moon.DistanceKm-sun.DistanceKm*math.Cos(ψ))
	return i * 180 / math.Pi
}

// Planet returns the apparent geocentric place of p at jde. Without loaded
// VSOP87 tables it fails with EphemerisUnavailable.
func (d *Dataset) Planet(p Planet, jde float64) (PlanetGeometry, error) {
	if !d.HasPlanets() {
		return PlanetGeometry{}, skyerr.New(skyerr.EphemerisUnavailable, "planetary tables not loaded")
	}
	v, ok := d.planets[p]
	if !ok {
		return PlanetGeometry{}, skyerr.New(skyerr.EphemerisUnavailable, "no series for %s", p)
	}

	ra, dec := elliptic.Position(v, d.earth, jde)

	L, B, r := v.Position(jde)
	L0, B0, R := d.earth.Position(jde)
	x, y, z := heliocentric(L, B, r)
	x0, y0, z0 := heliocentric(L0, B0, R)
	Δ := math.Sqrt((x-x0)*(x-x0) + (y-y0)*(y-y0) + (z-z0)*(z-z0))

	g := PlanetGeometry{
		RA:         ra,
		Dec:        dec,
		DistanceKm: Δ * AU,
		SunDist:    r,
		EarthDist:  Δ,
		EarthSun:   R,
		Phase:      illum.PhaseAngle(r, Δ, R),
	}
	if p == Saturn {
		g.RingΔU, g.RingTilt = saturnring.UB(jde, d.earth, v)
	}
	return g, nil
}

// ParallaxDeg returns the horizontal parallax, in degrees, of a body at
// distanceKm from the geocenter.
func ParallaxDeg(distanceKm float64) float64 {
	return math.Asin(earthRadiusKm/distanceKm) * 180 / math.Pi
}

func heliocentric(L, B unit.Angle, r float64) (x, y, z float64) {
	sB, cB := B.Sincos()
	sL, cL := L.Sincos()
	return r * cB * cL, r * cB * sL, r * sB
}
