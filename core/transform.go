package core

import (
	"math"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// UnitRadius is the sphere radius used unless a caller asks otherwise.
const UnitRadius = 1.0

// DegreeToRadian converts degrees to radians.
func DegreeToRadian(degree float64) float64 {
	return degree * math.Pi / 180
}

// RadianToDegree converts radians to degrees.
func RadianToDegree(radian float64) float64 {
	return radian * 180 / math.Pi
}

// GeoToXYZ maps a geographic position onto the unit sphere.
func GeoToXYZ(geo model.GeoPosition) model.CartesianPosition {
	return GeoToCartesian(geo, UnitRadius)
}

// GeoToCartesian maps a geographic position onto a sphere of the given radius.
func GeoToCartesian(geo model.GeoPosition, radius float64) model.CartesianPosition {
	latRad := DegreeToRadian(geo.Lat)
	lonRad := DegreeToRadian(geo.Lon)
	return model.CartesianPosition{
		X: radius * math.Cos(latRad) * math.Cos(lonRad),
		Y: radius * math.Cos(latRad) * math.Sin(lonRad),
		Z: radius * math.Sin(latRad),
	}
}

// XYZToGeo is the inverse of GeoToXYZ for points on the unit sphere.
// The returned longitude is in (-180, 180].
func XYZToGeo(pos model.CartesianPosition) model.GeoPosition {
	return CartesianToGeo(pos, UnitRadius)
}

// CartesianToGeo returns the geographic coordinates of a point on a sphere
// of the given radius. The asin argument is clamped to [-1, 1], so points
// that drifted slightly off the sphere still map to a pole instead of NaN.
func CartesianToGeo(pos model.CartesianPosition, radius float64) model.GeoPosition {
	lat := math.Asin(clampUnit(pos.Z / radius))
	lon := math.Atan2(pos.Y, pos.X)
	if lon == -math.Pi {
		lon = math.Pi
	}
	return model.GeoPosition{
		Lat: RadianToDegree(lat),
		Lon: RadianToDegree(lon),
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
