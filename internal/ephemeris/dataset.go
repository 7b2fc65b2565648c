// Package ephemeris owns the process-wide ephemeris dataset: the VSOP87
// planetary theory loaded once at start, and the lunisolar series that need
// no data files. A Dataset is read-only after construction and safe for
// concurrent use.
package ephemeris

import (
	"fmt"
	"os"

	pp "github.com/soniakeys/meeus/v3/planetposition"

	"github.com/large-farva/skyengine/internal/skyerr"
)

// Planet identifies a major planet in the VSOP87 tables.
type Planet int

const (
	Mercury Planet = pp.Mercury
	Venus   Planet = pp.Venus
	Mars    Planet = pp.Mars
	Jupiter Planet = pp.Jupiter
	Saturn  Planet = pp.Saturn
	Uranus  Planet = pp.Uranus
	Neptune Planet = pp.Neptune
)

// Planets lists the planets the dataset serves, innermost first.
var Planets = []Planet{Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune}

func (p Planet) String() string {
	switch p {
	case Mercury:
		return "Mercury"
	case Venus:
		return "Venus"
	case Mars:
		return "Mars"
	case Jupiter:
		return "Jupiter"
	case Saturn:
		return "Saturn"
	case Uranus:
		return "Uranus"
	case Neptune:
		return "Neptune"
	}
	return fmt.Sprintf("Planet(%d)", int(p))
}

// Dataset is the loaded ephemeris. The zero value is not usable.
type Dataset struct {
	dir     string
	earth   *pp.V87Planet
	planets map[Planet]*pp.V87Planet
}

// Load reads the VSOP87B tables for the Earth and every planet from dir.
// Any missing or unreadable file fails with EphemerisUnavailable.
func Load(dir string) (*Dataset, error) {
	if dir == "" {
		return nil, skyerr.New(skyerr.EphemerisUnavailable, "no VSOP87 directory configured")
	}
	if st, err := os.Stat(dir); err != nil {
		return nil, skyerr.Wrap(skyerr.EphemerisUnavailable, err, "stat %s", dir)
	} else if !st.IsDir() {
		return nil, skyerr.New(skyerr.EphemerisUnavailable, "%s is not a directory", dir)
	}

	earth, err := pp.LoadPlanetPath(pp.Earth, dir)
	if err != nil {
		return nil, skyerr.Wrap(skyerr.EphemerisUnavailable, err, "load Earth series")
	}
	ds := &Dataset{
		dir:     dir,
		earth:   earth,
		planets: make(map[Planet]*pp.V87Planet, len(Planets)),
	}
	for _, p := range Planets {
		v, err := pp.LoadPlanetPath(int(p), dir)
		if err != nil {
			return nil, skyerr.Wrap(skyerr.EphemerisUnavailable, err, "load %s series", p)
		}
		ds.planets[p] = v
	}
	return ds, nil
}

// NewLunisolar returns a dataset that serves only the Sun and the Moon.
// Planet queries against it fail with EphemerisUnavailable.
func NewLunisolar() *Dataset {
	return &Dataset{}
}

// HasPlanets reports whether the VSOP87 tables are loaded.
func (d *Dataset) HasPlanets() bool { return d.earth != nil }

// Dir returns the directory the tables were loaded from, or "".
func (d *Dataset) Dir() string { return d.dir }
