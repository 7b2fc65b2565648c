package frame

import (
	"math"

	"github.com/large-farva/skyengine/internal/skyerr"
)

// Location is a point on the Earth's surface. Latitude and longitude are
// geodetic degrees (north and east positive); elevation is meters above the
// WGS-84 ellipsoid.
type Location struct {
	Latitude  float64 `json:"latitude" toml:"latitude"`
	Longitude float64 `json:"longitude" toml:"longitude"`
	Elevation float64 `json:"elevation" toml:"elevation"`
}

// NewLocation validates the coordinates and returns a Location.
func NewLocation(lat, lon, elevM float64) (Location, error) {
	loc := Location{Latitude: lat, Longitude: lon, Elevation: elevM}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate reports an InvalidLocation error when a coordinate is out of range.
func (l Location) Validate() error {
	switch {
	case math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90:
		return skyerr.New(skyerr.InvalidLocation, "latitude %v outside [-90, 90]", l.Latitude)
	case math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180:
		return skyerr.New(skyerr.InvalidLocation, "longitude %v outside [-180, 180]", l.Longitude)
	case math.IsNaN(l.Elevation) || math.IsInf(l.Elevation, 0):
		return skyerr.New(skyerr.InvalidLocation, "elevation %v is not finite", l.Elevation)
	}
	return nil
}
