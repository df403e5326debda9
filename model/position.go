package model

// GeoPosition is a point on the sphere's surface in geographic degrees.
// Lat is in [-90, 90]; Lon is usually in (-180, 180] but may be unnormalized
// (earth-frame longitudes keep decreasing as the planet spins).
type GeoPosition struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CartesianPosition is a point on (or near) the sphere of radius R centred on
// the origin. The orbit model keeps x²+y²+z² = R², R = 1 by convention.
type CartesianPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ReferenceFrame selects which geographic frame a renderer projects.
type ReferenceFrame string

const (
	// FrameAbsolute is fixed relative to the starting reference (star-fixed).
	FrameAbsolute ReferenceFrame = "absolute"
	// FrameEarth follows the simulated planet's own spin.
	FrameEarth ReferenceFrame = "earth"
)

// Valid reports whether f is a known frame.
func (f ReferenceFrame) Valid() bool {
	return f == FrameAbsolute || f == FrameEarth
}
