package core

import (
	"math"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// EarthRotationPerPhase couples the planet's spin to the orbital phase:
// degrees of rotation accumulated per radian of phase. It is a visual
// constant, not a physical one.
const EarthRotationPerPhase = 100.0

// EarthRotation returns the accumulated planetary rotation in degrees for
// the given orbital phase.
func EarthRotation(phase float64) float64 {
	return phase * EarthRotationPerPhase
}

// AbsoluteToEarth converts an absolute (star-fixed) position into the
// rotating planet's frame. The longitude is not wrapped; use WrapLongitude
// before placing it on a map.
func AbsoluteToEarth(geo model.GeoPosition, earthRotation float64) model.GeoPosition {
	return model.GeoPosition{Lat: geo.Lat, Lon: geo.Lon - earthRotation}
}

// WrapLongitude normalizes a longitude in degrees to (-180, 180].
func WrapLongitude(lon float64) float64 {
	wrapped := math.Mod(lon, 360)
	if wrapped <= -180 {
		wrapped += 360
	} else if wrapped > 180 {
		wrapped -= 360
	}
	return wrapped
}
