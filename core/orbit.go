package core

import (
	"math"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// OrbitPosition is the moving point in both Cartesian and geographic form.
type OrbitPosition struct {
	model.CartesianPosition
	model.GeoPosition
}

// CalculatePosition returns the point on the unit sphere reached after the
// given phase along the great circle through the initial point.
//
// The three angles are in degrees; time is the orbital phase theta in
// radians and is used as-is, so the result is periodic in time with period
// 2π. The circle leaves the initial point along the local tangent rotated
// direction degrees from east towards north.
func CalculatePosition(initialLatitude, initialLongitude, direction, time float64) model.CartesianPosition {
	return CalculatePositionWithRadius(initialLatitude, initialLongitude, direction, time, UnitRadius)
}

// CalculatePositionWithRadius is CalculatePosition on a sphere of the given
// radius. Every term scales linearly with radius.
//
// At the poles the east and north vectors are still derived from the
// initial longitude, so the result is deterministic even though direction
// no longer has a geographic meaning there.
func CalculatePositionWithRadius(initialLatitude, initialLongitude, direction, time, radius float64) model.CartesianPosition {
	theta := time
	latRad := DegreeToRadian(initialLatitude)
	lonRad := DegreeToRadian(initialLongitude)
	dirRad := DegreeToRadian(direction)

	sinLat, cosLat := math.Sincos(latRad)
	sinLon, cosLon := math.Sincos(lonRad)
	sinDir, cosDir := math.Sincos(dirRad)
	sinTheta, cosTheta := math.Sincos(theta)

	// Initial point, local east and local north at the initial point.
	px, py, pz := cosLat*cosLon, cosLat*sinLon, sinLat
	ex, ey := -sinLon, cosLon
	nx, ny, nz := -sinLat*cosLon, -sinLat*sinLon, cosLat

	// Tangent of travel: east rotated by direction within the tangent plane.
	dx := cosDir*ex + sinDir*nx
	dy := cosDir*ey + sinDir*ny
	dz := sinDir * nz

	return model.CartesianPosition{
		X: radius * (cosTheta*px + sinTheta*dx),
		Y: radius * (cosTheta*py + sinTheta*dy),
		Z: radius * (cosTheta*pz + sinTheta*dz),
	}
}

// CalculateOrbitPosition returns the unit-sphere position together with its
// geographic coordinates. The geographic part goes through XYZToGeo so that
// every caller shares one asin/atan2 convention.
func CalculateOrbitPosition(initialLatitude, initialLongitude, direction, time float64) OrbitPosition {
	pos := CalculatePosition(initialLatitude, initialLongitude, direction, time)
	return OrbitPosition{
		CartesianPosition: pos,
		GeoPosition:       XYZToGeo(pos),
	}
}
